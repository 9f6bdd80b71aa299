package hw

import (
	"fmt"

	"github.com/robotalks/ledchain/pkg/frame"
)

// ChannelError indicates a channel not provided by the backend.
type ChannelError struct {
	Channel frame.Channel
}

// Error implements error.
func (e *ChannelError) Error() string {
	return fmt.Sprintf("unsupported channel %v", e.Channel)
}
