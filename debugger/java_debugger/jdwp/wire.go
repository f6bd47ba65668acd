package jdwp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// JDWP线上数据全部为大端编码
// packetWriter/packetReader负责命令体的编码解码，id字段按协商长度处理

type packetWriter struct {
	buf   bytes.Buffer
	sizes IDSizes
}

func newPacketWriter(sizes IDSizes) *packetWriter {
	return &packetWriter{sizes: sizes}
}

func (w *packetWriter) bytes() []byte {
	return w.buf.Bytes()
}

func (w *packetWriter) writeByte(b byte) {
	w.buf.WriteByte(b)
}

func (w *packetWriter) writeInt(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

func (w *packetWriter) writeLong(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *packetWriter) writeString(s string) {
	w.writeInt(int32(len(s)))
	w.buf.WriteString(s)
}

func (w *packetWriter) writeID(v uint64, size int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[8-size:])
}

func (w *packetWriter) writeObjectID(id ObjectID)         { w.writeID(uint64(id), w.sizes.ObjectID) }
func (w *packetWriter) writeThreadID(id ThreadID)         { w.writeID(uint64(id), w.sizes.ObjectID) }
func (w *packetWriter) writeRefTypeID(id ReferenceTypeID) { w.writeID(uint64(id), w.sizes.ReferenceTypeID) }
func (w *packetWriter) writeMethodID(id MethodID)         { w.writeID(uint64(id), w.sizes.MethodID) }
func (w *packetWriter) writeFrameID(id FrameID)           { w.writeID(uint64(id), w.sizes.FrameID) }

func (w *packetWriter) writeLocation(loc Location) {
	w.writeByte(loc.TypeTag)
	w.writeRefTypeID(loc.Class)
	w.writeMethodID(loc.Method)
	w.writeLong(loc.Index)
}

type packetReader struct {
	data  []byte
	off   int
	sizes IDSizes
	err   error
}

func newPacketReader(data []byte, sizes IDSizes) *packetReader {
	return &packetReader{data: data, sizes: sizes}
}

func (r *packetReader) fail() {
	if r.err == nil {
		r.err = fmt.Errorf("jdwp: truncated packet, off = %d, len = %d", r.off, len(r.data))
	}
}

func (r *packetReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.fail()
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *packetReader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *packetReader) readUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *packetReader) readInt() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (r *packetReader) readLong() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *packetReader) readString() string {
	n := r.readInt()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *packetReader) readID(size int) uint64 {
	b := r.take(size)
	if b == nil {
		return 0
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func (r *packetReader) readObjectID() ObjectID   { return ObjectID(r.readID(r.sizes.ObjectID)) }
func (r *packetReader) readThreadID() ThreadID   { return ThreadID(r.readID(r.sizes.ObjectID)) }
func (r *packetReader) readRefTypeID() ReferenceTypeID {
	return ReferenceTypeID(r.readID(r.sizes.ReferenceTypeID))
}
func (r *packetReader) readMethodID() MethodID { return MethodID(r.readID(r.sizes.MethodID)) }
func (r *packetReader) readFrameID() FrameID   { return FrameID(r.readID(r.sizes.FrameID)) }

func (r *packetReader) readLocation() Location {
	return Location{
		TypeTag: r.readByte(),
		Class:   r.readRefTypeID(),
		Method:  r.readMethodID(),
		Index:   r.readLong(),
	}
}

// readValue 读取一个带tag的值
func (r *packetReader) readValue() Value {
	tag := Tag(r.readByte())
	v := Value{Tag: tag}
	switch tag {
	case TagBoolean, TagByte:
		v.Int = int64(r.readByte())
	case TagChar, TagShort:
		v.Int = int64(int16(r.readUint16()))
		if tag == TagChar {
			v.Int = int64(uint16(v.Int))
		}
	case TagInt:
		v.Int = int64(r.readInt())
	case TagLong:
		v.Int = int64(r.readLong())
	case TagFloat:
		v.Float = float64(math.Float32frombits(uint32(r.readInt())))
	case TagDouble:
		v.Float = math.Float64frombits(r.readLong())
	case TagVoid:
	default:
		// 其余tag都是对象引用
		v.Object = r.readObjectID()
	}
	return v
}
