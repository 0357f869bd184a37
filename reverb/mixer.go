package reverb

// mix writes dry*in + early*e + late*l into out for every frame of in. No
// limiting is applied. The explicit conversions keep each product rounded so
// results do not depend on fused multiply-add.
func mix(levels MixLevels, in, early, late, out []float32) {
	n := len(in)
	early, late, out = early[:n], late[:n], out[:n]
	for i, x := range in {
		o := float32(levels.Dry * x)
		o += float32(levels.Early * early[i])
		o += float32(levels.Late * late[i])
		out[i] = o
	}
}
