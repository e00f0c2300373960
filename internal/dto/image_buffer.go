package dto

// BufferedImage holds an annotated frame and its cycle before flushing to disk.
type BufferedImage struct {
	Timestamp string
	CycleID   string
	Product   string
	Data      []byte
}
