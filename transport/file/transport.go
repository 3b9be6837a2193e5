// Package file writes serialized flow records to a file or standard output.
package file

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flowmesh/flowmesh/transport"
)

type FileDriver struct {
	fileDestination string
	lineSeparator   string
	w               io.Writer
	file            *os.File
	lock            *sync.RWMutex
	q               chan bool
}

func (d *FileDriver) Prepare() error {
	flag.StringVar(&d.fileDestination, "transport.file", "", "File/console output (empty for stdout)")
	flag.StringVar(&d.lineSeparator, "transport.file.sep", "\n", "Line separator")
	return nil
}

func (d *FileDriver) openFile() error {
	file, err := os.OpenFile(d.fileDestination, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	d.file = file
	d.w = d.file
	return nil
}

func (d *FileDriver) Init() error {
	d.q = make(chan bool, 1)

	if d.fileDestination == "" {
		d.w = os.Stdout
		return nil
	}

	var err error
	d.lock.Lock()
	err = d.openFile()
	d.lock.Unlock()
	if err != nil {
		return err
	}

	// reopen on SIGHUP so external log rotation works
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-c:
				d.lock.Lock()
				d.file.Close()
				d.openFile()
				d.lock.Unlock()
			case <-d.q:
				signal.Stop(c)
				return
			}
		}
	}()

	return nil
}

func (d *FileDriver) Send(key, data []byte) error {
	d.lock.RLock()
	w := d.w
	d.lock.RUnlock()
	_, err := w.Write(append(data, []byte(d.lineSeparator)...))
	return err
}

func (d *FileDriver) Close() error {
	if d.fileDestination != "" {
		d.lock.Lock()
		d.file.Close()
		d.lock.Unlock()
	}
	select {
	case d.q <- true:
	default:
	}
	return nil
}

func init() {
	d := &FileDriver{
		lock: &sync.RWMutex{},
	}
	transport.RegisterTransportDriver("file", d)
}
