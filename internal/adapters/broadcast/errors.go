package broadcast

import "errors"

var (
	// ErrHubClosed is returned when subscribing after Close.
	ErrHubClosed = errors.New("broadcast hub closed")
	// ErrSlowSubscriber is the reason recorded on a subscription evicted under the disconnect policy.
	ErrSlowSubscriber = errors.New("subscriber fell behind")
	// ErrUnknownPolicy rejects policies other than drop_oldest and disconnect.
	ErrUnknownPolicy = errors.New("unknown subscriber policy")
)
