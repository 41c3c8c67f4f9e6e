package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/vpp"
)

// record is one profiling entry of the -report file.
type record struct {
	Command string `msgpack:"command"`
	Frame   int    `msgpack:"frame"`
	Event   string `msgpack:"event"`
	Kernel  string `msgpack:"kernel"`
	StartNs int64  `msgpack:"start_ns"`
	EndNs   int64  `msgpack:"end_ns"`
	Status  string `msgpack:"status"`
}

func newRecord(command string, frame int, ev *vpp.Event) record {
	return record{
		Command: command,
		Frame:   frame,
		Event:   ev.ID().String(),
		Kernel:  ev.Name(),
		StartNs: ev.StartNs(),
		EndNs:   ev.EndNs(),
		Status:  vpp.StatusOf(ev.Err()).String(),
	}
}

// encodeRecords writes every record as a 4-byte big-endian length followed
// by its msgpack encoding.
func encodeRecords(w io.Writer, records []record) error {
	var prefix [4]byte
	for _, r := range records {
		b, err := msgpack.Marshal(&r)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", r.Frame, err)
		}
		binary.BigEndian.PutUint32(prefix[:], uint32(len(b))) //nolint:gosec // records are small
		if _, err := w.Write(prefix[:]); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// decodeRecords reads records written by encodeRecords.
func decodeRecords(r io.Reader) ([]record, error) {
	var (
		out    []record
		prefix [4]byte
	)
	for {
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		b := make([]byte, binary.BigEndian.Uint32(prefix[:]))
		if _, err := io.ReadFull(r, b); err != nil {
			return out, err
		}
		var rec record
		if err := msgpack.Unmarshal(b, &rec); err != nil {
			return out, fmt.Errorf("unmarshal record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}

func writeReport(path, command string, events []*vpp.Event) error {
	records := make([]record, len(events))
	for i, ev := range events {
		records[i] = newRecord(command, i, ev)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := encodeRecords(w, records); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// printSummary prints frame count, throughput and the mean kernel time.
func printSummary(command string, events []*vpp.Event, outBytes int, wall time.Duration) {
	p := message.NewPrinter(language.English)

	var kernel time.Duration
	for _, ev := range events {
		kernel += ev.Elapsed()
	}
	n := len(events)
	fps := 0.0
	if wall > 0 {
		fps = float64(n) / wall.Seconds()
	}
	p.Printf("%s: %d frames, %d output bytes, %.1f fps (wall %v)\n", command, n, outBytes, fps, wall.Round(time.Microsecond))
	if kernel > 0 && n > 0 {
		p.Printf("%s: mean kernel time %d ns\n", command, kernel.Nanoseconds()/int64(n))
	}
}
