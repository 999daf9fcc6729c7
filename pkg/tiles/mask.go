package tiles

// SphereMask returns a binary mask of the given spatial shape that is 1 for
// voxels whose center lies within radius voxels of the shape's center and 0
// elsewhere. The mask uses the same x-fastest layout as models.Volume.
func SphereMask(width, height, depth int, radius float64) []float64 {
	mask := make([]float64, width*height*depth)
	if radius <= 0 {
		return mask
	}

	cx := float64(width-1) / 2
	cy := float64(height-1) / 2
	cz := float64(depth-1) / 2
	r2 := radius * radius

	for z := 0; z < depth; z++ {
		dz := float64(z) - cz
		for y := 0; y < height; y++ {
			dy := float64(y) - cy
			for x := 0; x < width; x++ {
				dx := float64(x) - cx
				if dx*dx+dy*dy+dz*dz <= r2 {
					mask[(z*height+y)*width+x] = 1
				}
			}
		}
	}

	return mask
}
