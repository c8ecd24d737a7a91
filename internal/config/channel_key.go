package config

import "fmt"

const channelPrefix = "campus"

type ChannelKeyStruct struct{}

func NewChannelKeyStruct() *ChannelKeyStruct {
	return &ChannelKeyStruct{}
}

// ChangesChannel returns the Redis PubSub channel carrying store change events.
func (r *ChannelKeyStruct) ChangesChannel() string {
	return fmt.Sprintf("%s:changes", channelPrefix)
}

var ChannelKey = NewChannelKeyStruct()
