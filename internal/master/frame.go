package master

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"yqhp/systest/pkg/types"
	"yqhp/systest/pkg/utils"
)

const (
	framePrefix  = "systest-slot "
	frameVersion = 1
)

// Frame is the single record a worker process writes to its stdout.
type Frame struct {
	Version int              `json:"v"`
	Key     types.ShardKey   `json:"key"`
	Slot    types.ResultSlot `json:"slot"`
}

// WriteFrame publishes the slot of worker key on w as one line.
func WriteFrame(w io.Writer, key types.ShardKey, slot types.ResultSlot) error {
	data, err := utils.ToJSONBytes(Frame{Version: frameVersion, Key: key, Slot: slot})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s%s\n", framePrefix, data)
	return err
}

// ReadFrame extracts the slot of worker key from a worker's stdout.
// Lines without the frame prefix are ignored, the last frame wins.
func ReadFrame(output []byte, key types.ShardKey) (types.ResultSlot, error) {
	var last []byte
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if bytes.HasPrefix(line, []byte(framePrefix)) {
			last = append(last[:0], line[len(framePrefix):]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return types.ResultSlot{}, fmt.Errorf("%w: %v", ErrSlotMissing, err)
	}
	if last == nil {
		return types.ResultSlot{}, ErrSlotMissing
	}

	frame, err := utils.FromJSONBytes[Frame](last)
	if err != nil {
		return types.ResultSlot{}, fmt.Errorf("%w: malformed frame: %v", ErrSlotMissing, err)
	}
	if frame.Version != frameVersion {
		return types.ResultSlot{}, fmt.Errorf("%w: frame version %d", ErrSlotMissing, frame.Version)
	}
	if frame.Key != key {
		return types.ResultSlot{}, fmt.Errorf("%w: frame for worker %s, expected %s", ErrSlotMissing, frame.Key, key)
	}
	if !frame.Slot.Valid() {
		return types.ResultSlot{}, fmt.Errorf("%w: invalid slot %+v", ErrSlotMissing, frame.Slot)
	}
	return frame.Slot, nil
}
