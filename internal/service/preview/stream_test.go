package preview

import (
	"errors"
	"io"
	"testing"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
	"github.com/stretchr/testify/assert"
)

func TestServer_ObserveUpdatesStream(t *testing.T) {
	var seen []string
	s := NewServer("127.0.0.1:0", func(img scanner.Image, o dto.Outcome) ([]byte, error) {
		seen = append(seen, o.CycleID)
		if o.CycleID == "bad" {
			return nil, errors.New("encode failed")
		}
		return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
	}, logger.NewWithWriter(io.Discard))

	s.Observe(nil, dto.Outcome{CycleID: "c1"})
	s.Observe(nil, dto.Outcome{CycleID: "bad"})
	s.Observe(nil, dto.Outcome{CycleID: "c2"})

	assert.Equal(t, []string{"c1", "bad", "c2"}, seen)
	assert.Equal(t, uint64(2), s.Frames())
	assert.NotNil(t, s.Handler())
}
