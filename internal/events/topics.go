package events

const (
	TopicConnStatus  = "conn.status"
	TopicConsoleLog  = "console.log"
	TopicDeviceInfo  = "device.info"
	TopicRawChunkIn  = "raw.chunk.in"
	TopicRawChunkOut = "raw.chunk.out"
)
