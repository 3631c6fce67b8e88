package chardev

// Recorder receives device activity for metrics collection.
type Recorder interface {
	SessionOpened(endpoint string)
	SessionClosed(endpoint string)
	BytesRead(endpoint string, n int)
	BytesWritten(endpoint string, n int)
	Signaled(endpoint string, released int)
	WaitInterrupted(endpoint string)
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened(string) {}
func (nopRecorder) SessionClosed(string) {}
func (nopRecorder) BytesRead(string, int) {}
func (nopRecorder) BytesWritten(string, int) {}
func (nopRecorder) Signaled(string, int) {}
func (nopRecorder) WaitInterrupted(string) {}
