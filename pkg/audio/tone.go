package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Beep synthesizes a sine tone with short linear fades so it does not click.
func Beep(freq float64, d time.Duration, sampleRate int) []int16 {
	n := int(d.Seconds() * float64(sampleRate))
	if n <= 0 {
		return nil
	}
	fade := sampleRate / 200 // 5ms
	if fade*2 > n {
		fade = n / 2
	}

	const amplitude = 0.4 * math.MaxInt16
	samples := make([]int16, n)
	for i := range samples {
		gain := 1.0
		switch {
		case fade > 0 && i < fade:
			gain = float64(i) / float64(fade)
		case fade > 0 && i >= n-fade:
			gain = float64(n-1-i) / float64(fade)
		}
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		samples[i] = int16(amplitude * gain * v)
	}
	return samples
}

// ConvertPCM16ToInt16 converts byte slice to int16 samples.
func ConvertPCM16ToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// ConvertInt16ToPCM16 converts int16 samples to byte slice.
func ConvertInt16ToPCM16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}
