package protocol

import (
	"bytes"
	"encoding/gob"
	"io"

	"peerdrop/internal/errs"
)

func init() {
	gob.Register(&Hello{})
	gob.Register(&Welcome{})
	gob.Register(&Signal{})
	gob.Register(&FileStart{})
	gob.Register(&FileChunk{})
	gob.Register(&FileComplete{})
	gob.Register(&Error{})
}

type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Encode(w io.Writer, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(&msg)
}

func (c *Codec) Decode(r io.Reader) (Message, error) {
	var msg Message
	if err := gob.NewDecoder(r).Decode(&msg); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errs.NewMessageError("undecodable payload", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *Codec) EncodeToBytes(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) DecodeFromBytes(data []byte) (Message, error) {
	return c.Decode(bytes.NewReader(data))
}
