package speech

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"mime"
	"strconv"
	"strings"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

// DecodePCM16 将 16bit 小端 PCM 解码为交错浮点样本
func DecodePCM16(data []byte, sampleRate, channels int) (*speech.AudioBuffer, error) {
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, channels %d", ErrInvalidAudio, sampleRate, channels)
	}
	if len(data)%(2*channels) != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-channel frames", ErrInvalidAudio, len(data), channels)
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float32(v) / 32768
	}

	return &speech.AudioBuffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}, nil
}

// EncodePCM16 将浮点样本编码回 16bit 小端 PCM
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

// EncodeWAV 将音频封装为 16bit PCM WAV 文件
func EncodeWAV(buf *speech.AudioBuffer) ([]byte, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, ErrNoAudio
	}

	pcm := EncodePCM16(buf.Samples)
	const bitsPerSample = 16
	blockAlign := buf.Channels * bitsPerSample / 8
	byteRate := buf.SampleRate * blockAlign

	var out bytes.Buffer
	out.Grow(44 + len(pcm))

	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(36+len(pcm)))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))
	_ = binary.Write(&out, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&out, binary.LittleEndian, uint16(buf.Channels))
	_ = binary.Write(&out, binary.LittleEndian, uint32(buf.SampleRate))
	_ = binary.Write(&out, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&out, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&out, binary.LittleEndian, uint16(bitsPerSample))

	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(pcm)))
	out.Write(pcm)

	return out.Bytes(), nil
}

// SampleRateFromMIME 从 "audio/L16;codec=pcm;rate=24000" 一类的 MIME 中解析采样率
func SampleRateFromMIME(mimeType string) (int, bool) {
	if strings.TrimSpace(mimeType) == "" {
		return 0, false
	}
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, false
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}
