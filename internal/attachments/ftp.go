package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTP stores objects on an FTP server whose files are published over HTTP
// at baseURL.
type FTP struct {
	addr     string
	user     string
	password string
	baseURL  string

	mu   sync.Mutex
	conn *ftp.ServerConn
}

func NewFTP(host, port, user, password, baseURL string) *FTP {
	return &FTP{
		addr:     host + ":" + port,
		user:     user,
		password: password,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// connect must be called with mu held.
func (f *FTP) connect(ctx context.Context) error {
	if f.conn != nil {
		if err := f.conn.NoOp(); err == nil {
			return nil
		}
		f.conn.Quit()
		f.conn = nil
	}

	conn, err := ftp.Dial(f.addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("failed to connect to FTP: %w", err)
	}
	if err := conn.Login(f.user, f.password); err != nil {
		conn.Quit()
		return fmt.Errorf("failed to login to FTP: %w", err)
	}

	f.conn = conn
	return nil
}

func (f *FTP) Upload(ctx context.Context, key, contentType string, data io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.connect(ctx); err != nil {
		return "", err
	}

	// Already-existing directories make MakeDir fail; Stor reports the real problem.
	_ = f.conn.MakeDir(path.Dir(key))

	// Stored under a temp name and renamed so readers never see a partial file.
	tmp := path.Join(path.Dir(key), ".upload-"+path.Base(key))
	if err := f.conn.Stor(tmp, data); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	if err := f.conn.Rename(tmp, key); err != nil {
		_ = f.conn.Delete(tmp)
		return "", fmt.Errorf("failed to publish file: %w", err)
	}

	return f.URL(key), nil
}

func (f *FTP) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.connect(ctx); err != nil {
		return err
	}

	if err := f.conn.Delete(key); err != nil {
		var perr *textproto.Error
		if errors.As(err, &perr) && perr.Code == ftp.StatusFileUnavailable {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (f *FTP) List(ctx context.Context, prefix string) ([]Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	dir := path.Dir(prefix + "x")
	entries, err := f.conn.List(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var out []Object
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile || strings.HasPrefix(e.Name, ".") {
			continue
		}
		key := path.Join(dir, path.Base(e.Name))
		if strings.HasPrefix(key, prefix) {
			out = append(out, Object{Key: key, Created: e.Time})
		}
	}
	return out, nil
}

func (f *FTP) URL(key string) string {
	return f.baseURL + "/" + key
}

func (f *FTP) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn != nil {
		err := f.conn.Quit()
		f.conn = nil
		return err
	}
	return nil
}
