package step

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/specialistvlad/storeysplit/internal/entity"
)

// Write serializes header and entities as an exchange file. Entities must be
// in strictly ascending id order; otherwise Write stops with ErrUnordered
// before writing the offending instance.
func Write(w io.Writer, header Header, entities []*entity.Entity) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(magicStart + ";\nHEADER;\n")
	for _, rec := range header.Records {
		bw.WriteString(rec.Type)
		writeParams(bw, rec.Params)
		bw.WriteString(";\n")
	}
	bw.WriteString("ENDSEC;\nDATA;\n")

	var last entity.ID
	for i, e := range entities {
		if i > 0 && e.ID <= last {
			bw.Flush()
			return fmt.Errorf("#%d after #%d: %w", e.ID, last, ErrUnordered)
		}
		last = e.ID
		if err := WriteEntity(bw, e); err != nil {
			return err
		}
	}
	bw.WriteString("ENDSEC;\n" + magicEnd + ";\n")
	return bw.Flush()
}

// WriteEntity writes a single DATA section line for e.
func WriteEntity(w *bufio.Writer, e *entity.Entity) error {
	w.WriteByte('#')
	w.WriteString(strconv.FormatUint(uint64(e.ID), 10))
	w.WriteByte('=')
	w.WriteString(e.Type)
	w.WriteByte('(')
	for i, a := range e.Attributes {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(a.Value.String())
	}
	_, err := w.WriteString(");\n")
	return err
}

func writeParams(w *bufio.Writer, params []entity.Value) {
	w.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(p.String())
	}
	w.WriteByte(')')
}

// CountingWriter counts the bytes written through it.
type CountingWriter struct {
	W io.Writer
	N int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}
