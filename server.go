package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/fansqz/java-debugger/protocol"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 一个websocket连接
// 写操作全部经过send队列，由writePump串行写出
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// sendMessage 客户端消费太慢时直接丢弃消息，不阻塞广播方
func (c *Client) sendMessage(message []byte) {
	select {
	case c.send <- message:
	default:
		logrus.Warnf("[sendMessage] client too slow, drop message")
	}
}

func (c *Client) close() {
	close(c.send)
}

// Server websocket服务
// 调试事件广播给所有连接，请求的应答只回给发起请求的连接
type Server struct {
	mutex   sync.RWMutex
	clients map[*Client]bool

	handler  *DebuggerHandler
	upgrader websocket.Upgrader
}

func NewServer() *Server {
	return &Server{
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Run(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug", s.handleWS)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("[handleWS] upgrade fail, err = %v", err)
		return
	}
	client := newClient(conn)
	s.mutex.Lock()
	s.clients[client] = true
	s.mutex.Unlock()
	logrus.Infof("[handleWS] client connected: %s", conn.RemoteAddr())

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handler.handle(client, message)
	}

	logrus.Infof("[handleWS] closing connection from %s", conn.RemoteAddr())
	s.removeClient(client)
}

func (s *Server) removeClient(client *Client) {
	s.mutex.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		client.close()
	}
	s.mutex.Unlock()
}

// Broadcast 把一条通知推送给所有连接的客户端
func (s *Server) Broadcast(notification *protocol.Notification) {
	message, err := json.Marshal(notification)
	if err != nil {
		logrus.Errorf("[Broadcast] marshal notification fail, err = %v", err)
		return
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for client := range s.clients {
		client.sendMessage(message)
	}
}
