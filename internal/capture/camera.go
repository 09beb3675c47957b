// Package capture reads BGR frames from a camera, a video file or a scripted
// sequence.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS         = 15
	DefaultWidth       = 640
	DefaultHeight      = 480
	DefaultReadTimeout = 2 * time.Second
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrReadFailed is a transient read failure; the next read may succeed.
	ErrReadFailed = errors.New("failed to read frame")

	// ErrEndOfStream means the source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Camera is a source of frames. ReadFrame returns a Mat the caller must
// close.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config selects the capture device and its requested format.
type Config struct {
	// Device is a camera index such as "0" or a video file path or URL.
	Device      string
	Width       int
	Height      int
	FPS         int
	ReadTimeout time.Duration
}

// DefaultConfig returns the first camera at 640x480.
func DefaultConfig() Config {
	return Config{
		Device:      "0",
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		FPS:         DefaultFPS,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Validate rejects non-positive sizes.
func (c Config) Validate() error {
	if c.Device == "" {
		return errors.New("camera device is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid camera size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid camera fps %d", c.FPS)
	}
	if c.ReadTimeout <= 0 {
		return errors.New("camera read timeout must be positive")
	}
	return nil
}

// deviceID returns the camera index when Device is numeric.
func (c Config) deviceID() (int, bool) {
	id, err := strconv.Atoi(c.Device)
	return id, err == nil
}

// cameraImpl manages video capture from a device or file using GoCV.
type cameraImpl struct {
	config  Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a Camera for config. Nothing is opened until Open.
func NewCamera(config Config) Camera {
	fps := config.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &cameraImpl{
		config: config,
		fps:    fps,
	}
}

// Open opens the device and requests the configured size and rate.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if id, ok := c.config.deviceID(); ok {
		capture, err = gocv.OpenVideoCapture(id)
	} else {
		capture, err = gocv.OpenVideoCapture(c.config.Device)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", c.config.Device, err)
	}

	if c.config.Width > 0 && c.config.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	}
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true
	return nil
}

// Close releases the device. Closing a closed camera is a no-op. A read in
// progress finishes before the device is released.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false
	return err
}

// ReadFrame grabs the next frame. A failed grab on a live camera is
// ErrReadFailed; on a file it is ErrEndOfStream.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if _, live := c.config.deviceID(); !live {
			return nil, ErrEndOfStream
		}
		return nil, ErrReadFailed
	}
	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
