package protocol

// Response 控制请求的同步应答
// 异步结果通过事件通知，不通过Response返回
type Response struct {
	Sequence uint        `json:"sequence"`
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
}
