package jdwp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fansqz/java-debugger/utils/gosync"
	"github.com/sirupsen/logrus"
)

const (
	handshake = "JDWP-Handshake"

	// OptionTimeout 单个请求的超时时间
	OptionTimeout = time.Second * 10

	flagReply byte = 0x80

	cmdSetEvent      byte = 64
	cmdCompositeEvnt byte = 100
)

// ErrDisconnected 连接已断开
// 目标进程退出和socket被关闭都会归一成该错误，调用方按正常终止处理
var ErrDisconnected = errors.New("jdwp: connection disconnected")

// Connection 到JDWP调试代理的一条连接
// 请求应答按packet id关联，事件由读协程解析后投递到事件队列
// 所有请求方法都是并发安全的
type Connection struct {
	conn  net.Conn
	sizes IDSizes

	writeMutex sync.Mutex
	nextID     uint32

	pendingMutex sync.Mutex
	pending      map[uint32]chan *replyPacket

	// events 事件队列，连接断开时关闭
	events chan *EventSet

	closeOnce sync.Once
	done      chan struct{}
}

type replyPacket struct {
	errCode uint16
	data    []byte
}

type rawPacket struct {
	id     uint32
	flags  byte
	cmdSet byte
	cmd    byte
	errCd  uint16
	data   []byte
}

// Attach 连接到已在监听的调试代理并完成握手
func Attach(addr string, timeout time.Duration) (*Connection, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	if err = conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err = conn.Write([]byte(handshake)); err != nil {
		conn.Close()
		return nil, err
	}
	reply := make([]byte, len(handshake))
	if _, err = io.ReadFull(conn, reply); err != nil {
		conn.Close()
		return nil, err
	}
	if string(reply) != handshake {
		conn.Close()
		return nil, fmt.Errorf("jdwp: bad handshake reply %q", reply)
	}
	if err = conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Connection{
		conn:    conn,
		pending: make(map[uint32]chan *replyPacket),
		events:  make(chan *EventSet, 16),
		done:    make(chan struct{}),
	}

	// 事件包的解析依赖id长度，所以在启动读协程之前先同步获取IDSizes
	// 期间到达的事件包先暂存，拿到IDSizes后再投递
	stashed, err := c.fetchIDSizes(timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}

	// 读协程panic时先走自身的defer收尾，再由gosync兜底，不把进程带崩
	gosync.Go(context.Background(), func(ctx context.Context) {
		c.readLoop(stashed)
	})
	if description, err := c.Version(); err == nil {
		logrus.Infof("[jdwp] 已附加到目标虚拟机: %s", description)
	}
	return c, nil
}

// fetchIDSizes 同步执行VirtualMachine.IDSizes命令
func (c *Connection) fetchIDSizes(timeout time.Duration) ([]*rawPacket, error) {
	id := atomic.AddUint32(&c.nextID, 1)
	if err := c.writePacket(id, 1, 7, nil); err != nil {
		return nil, err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	defer c.conn.SetReadDeadline(time.Time{})

	var stashed []*rawPacket
	for {
		pkt, err := c.readPacket()
		if err != nil {
			return nil, err
		}
		if pkt.flags&flagReply == 0 || pkt.id != id {
			stashed = append(stashed, pkt)
			continue
		}
		if pkt.errCd != 0 {
			return nil, Error(pkt.errCd)
		}
		r := newPacketReader(pkt.data, IDSizes{})
		c.sizes = IDSizes{
			FieldID:         int(r.readInt()),
			MethodID:        int(r.readInt()),
			ObjectID:        int(r.readInt()),
			ReferenceTypeID: int(r.readInt()),
			FrameID:         int(r.readInt()),
		}
		if r.err != nil {
			return nil, r.err
		}
		return stashed, nil
	}
}

// EventQueue 事件队列，阻塞式读取，连接断开时被关闭
func (c *Connection) EventQueue() <-chan *EventSet {
	return c.events
}

// readLoop 读协程，负责应答分发和事件解析
// 读协程是事件队列唯一的关闭方，任何一侧的Close都先经过socket关闭
// 把读协程逼退出，再由这里关闭队列，投递和关闭不会并发
func (c *Connection) readLoop(stashed []*rawPacket) {
	defer func() {
		c.shutdown()
		close(c.events)
	}()
	for _, pkt := range stashed {
		c.handlePacket(pkt)
	}
	for {
		pkt, err := c.readPacket()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				logrus.Infof("[jdwp] read loop exit, err = %v", err)
			}
			return
		}
		c.handlePacket(pkt)
	}
}

func (c *Connection) handlePacket(pkt *rawPacket) {
	if pkt.flags&flagReply != 0 {
		c.pendingMutex.Lock()
		ch, ok := c.pending[pkt.id]
		if ok {
			delete(c.pending, pkt.id)
		}
		c.pendingMutex.Unlock()
		if ok {
			ch <- &replyPacket{errCode: pkt.errCd, data: pkt.data}
		}
		return
	}
	if pkt.cmdSet == cmdSetEvent && pkt.cmd == cmdCompositeEvnt {
		set, err := parseEventSet(pkt.data, c.sizes)
		if err != nil {
			logrus.Errorf("[jdwp] parse event set fail, err = %v", err)
			return
		}
		select {
		case c.events <- set:
		case <-c.done:
		}
	}
}

// shutdown 连接断开后的收尾，唤醒所有等待中的请求
// 事件队列不在这里关闭：关闭socket会让读协程退出并由它关闭队列
func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
		c.pendingMutex.Lock()
		for id, ch := range c.pending {
			delete(c.pending, id)
			close(ch)
		}
		c.pendingMutex.Unlock()
	})
}

func (c *Connection) readPacket() (*rawPacket, error) {
	header := make([]byte, 11)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[0:4])
	if length < 11 {
		return nil, fmt.Errorf("jdwp: invalid packet length %d", length)
	}
	pkt := &rawPacket{
		id:    binary.BigEndian.Uint32(header[4:8]),
		flags: header[8],
	}
	if pkt.flags&flagReply != 0 {
		pkt.errCd = binary.BigEndian.Uint16(header[9:11])
	} else {
		pkt.cmdSet = header[9]
		pkt.cmd = header[10]
	}
	pkt.data = make([]byte, length-11)
	if _, err := io.ReadFull(c.conn, pkt.data); err != nil {
		return nil, err
	}
	return pkt, nil
}

func (c *Connection) writePacket(id uint32, cmdSet, cmd byte, body []byte) error {
	header := make([]byte, 11)
	binary.BigEndian.PutUint32(header[0:4], uint32(11+len(body)))
	binary.BigEndian.PutUint32(header[4:8], id)
	header[8] = 0
	header[9] = cmdSet
	header[10] = cmd

	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	if _, err := c.conn.Write(header); err != nil {
		return err
	}
	if len(body) != 0 {
		if _, err := c.conn.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// roundTrip 发送命令并等待应答
func (c *Connection) roundTrip(cmdSet, cmd byte, body []byte) (*packetReader, error) {
	select {
	case <-c.done:
		return nil, ErrDisconnected
	default:
	}

	id := atomic.AddUint32(&c.nextID, 1)
	ch := make(chan *replyPacket, 1)
	c.pendingMutex.Lock()
	c.pending[id] = ch
	c.pendingMutex.Unlock()

	if err := c.writePacket(id, cmdSet, cmd, body); err != nil {
		c.pendingMutex.Lock()
		delete(c.pending, id)
		c.pendingMutex.Unlock()
		return nil, ErrDisconnected
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, ErrDisconnected
		}
		if reply.errCode != 0 {
			return nil, Error(reply.errCode)
		}
		return newPacketReader(reply.data, c.sizes), nil
	case <-time.After(OptionTimeout):
		c.pendingMutex.Lock()
		delete(c.pending, id)
		c.pendingMutex.Unlock()
		return nil, fmt.Errorf("jdwp: command (%d,%d) time out", cmdSet, cmd)
	}
}

func (c *Connection) newWriter() *packetWriter {
	return newPacketWriter(c.sizes)
}

// Close 直接关闭socket，读协程随之退出
func (c *Connection) Close() error {
	c.shutdown()
	return nil
}
