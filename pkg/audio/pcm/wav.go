package pcm

import (
	"encoding/binary"
	"fmt"
)

// wavFormat mirrors the fields of the RIFF "fmt " chunk we care about.
type wavFormat struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
}

const wavFormatPCM = 1

// DecodeWAV parses a RIFF/WAVE container holding PCM16 data and returns
// the decoded Audio. Multi-channel files are mixed down to mono.
//
// Only uncompressed 16-bit PCM is supported; compressed or float WAV
// files return an error wrapping [ErrDecode].
func DecodeWAV(data []byte) (Audio, error) {
	if len(data) < 12 {
		return Audio{}, fmt.Errorf("%w: truncated RIFF header", ErrDecode)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Audio{}, fmt.Errorf("%w: not a RIFF/WAVE file", ErrDecode)
	}

	var fmtChunk *wavFormat
	var pcmData []byte

	// Walk the chunk list. Chunks are word-aligned; odd sizes carry a
	// pad byte that is not counted in the declared size.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return Audio{}, fmt.Errorf("%w: chunk %q overruns file", ErrDecode, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Audio{}, fmt.Errorf("%w: fmt chunk too small (%d bytes)", ErrDecode, size)
			}
			fmtChunk = &wavFormat{
				audioFormat:   binary.LittleEndian.Uint16(data[body : body+2]),
				numChannels:   binary.LittleEndian.Uint16(data[body+2 : body+4]),
				sampleRate:    binary.LittleEndian.Uint32(data[body+4 : body+8]),
				bitsPerSample: binary.LittleEndian.Uint16(data[body+14 : body+16]),
			}
		case "data":
			pcmData = data[body : body+size]
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if fmtChunk == nil {
		return Audio{}, fmt.Errorf("%w: missing fmt chunk", ErrDecode)
	}
	if pcmData == nil {
		return Audio{}, fmt.Errorf("%w: missing data chunk", ErrDecode)
	}
	if fmtChunk.audioFormat != wavFormatPCM {
		return Audio{}, fmt.Errorf("%w: unsupported audio format %d (want PCM)", ErrDecode, fmtChunk.audioFormat)
	}
	if fmtChunk.bitsPerSample != 16 {
		return Audio{}, fmt.Errorf("%w: unsupported bit depth %d (want 16)", ErrDecode, fmtChunk.bitsPerSample)
	}

	return FromInt16(pcmData, int(fmtChunk.sampleRate), int(fmtChunk.numChannels))
}

// EncodeWAV serializes Audio as a mono PCM16 RIFF/WAVE file.
func EncodeWAV(a Audio) []byte {
	pcmBytes := ToInt16(a)
	dataLen := len(pcmBytes)

	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(a.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(a.SampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                      // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                     // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[44:], pcmBytes)
	return buf
}
