// Package pngtext injects provenance tEXt chunks into PNG payloads.
package pngtext

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"xgrab/pkg/logger"
)

// SoftwareTag identifies the tool in embedded metadata
const SoftwareTag = "xgrab"

// maxTextLen caps the embedded body text
const maxTextLen = 1000

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Fields are the provenance values written into the image
type Fields struct {
	ItemID    string
	Permalink string
	Author    string
	Timestamp string
	Text      string
}

// Embed writes each non-empty field as a tEXt chunk after the IHDR
// chunk and returns the annotated payload. Embedding never fails past
// this boundary: any problem is logged and the original payload is
// returned byte-for-byte. Non-PNG payloads pass through untouched.
func Embed(payload []byte, f Fields, log logger.Logger) []byte {
	if log == nil {
		log = logger.GetLogger()
	}
	if !bytes.HasPrefix(payload, pngSignature) {
		return payload
	}

	out, err := embed(payload, f)
	if err != nil {
		log.WarnWithFields("metadata embedding failed, keeping original payload", map[string]interface{}{
			"error": err.Error(),
		})
		return payload
	}
	return out
}

func embed(payload []byte, f Fields) ([]byte, error) {
	ihdrEnd, err := ihdrEndOffset(payload)
	if err != nil {
		return nil, err
	}

	text := f.Text
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	var chunks bytes.Buffer
	for _, kv := range []struct{ keyword, value string }{
		{"Title", f.ItemID},
		{"Source", f.Permalink},
		{"Description", text},
		{"Author", f.Author},
		{"Creation Time", f.Timestamp},
		{"Software", SoftwareTag},
	} {
		if kv.value == "" {
			continue
		}
		chunk, err := textChunk(kv.keyword, kv.value)
		if err != nil {
			return nil, err
		}
		chunks.Write(chunk)
	}
	if chunks.Len() == 0 {
		return payload, nil
	}

	out := make([]byte, 0, len(payload)+chunks.Len())
	out = append(out, payload[:ihdrEnd]...)
	out = append(out, chunks.Bytes()...)
	out = append(out, payload[ihdrEnd:]...)
	return out, nil
}

// ihdrEndOffset returns the offset just past the IHDR chunk
func ihdrEndOffset(payload []byte) (int, error) {
	// signature + length + type, then IHDR data + CRC
	const sigLen = 8
	const headerLen = sigLen + 4 + 4
	if len(payload) < headerLen+4 {
		return 0, fmt.Errorf("truncated png: %d bytes", len(payload))
	}
	if string(payload[sigLen+4:headerLen]) != "IHDR" {
		return 0, fmt.Errorf("first chunk is not IHDR")
	}
	dataLen := int(binary.BigEndian.Uint32(payload[sigLen:]))
	end := headerLen + dataLen + 4
	if dataLen < 0 || end > len(payload) {
		return 0, fmt.Errorf("corrupt IHDR length %d", dataLen)
	}
	return end, nil
}

// textChunk builds one tEXt chunk: length, type, keyword NUL text, CRC
func textChunk(keyword, value string) ([]byte, error) {
	if len(keyword) == 0 || len(keyword) > 79 {
		return nil, fmt.Errorf("invalid tEXt keyword length %d", len(keyword))
	}

	data := make([]byte, 0, len(keyword)+1+len(value))
	data = append(data, keyword...)
	data = append(data, 0)
	data = append(data, value...)

	chunk := make([]byte, 8, 8+len(data)+4)
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	copy(chunk[4:], "tEXt")
	chunk = append(chunk, data...)

	crc := crc32.NewIEEE()
	crc.Write(chunk[4:8])
	crc.Write(data)
	chunk = binary.BigEndian.AppendUint32(chunk, crc.Sum32())
	return chunk, nil
}
