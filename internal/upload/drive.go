package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/bobmcallan/storetally/internal/config"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveUploader writes files into a Google Drive folder tree, creating the
// "<folder>/<date>" folders on first use.
type DriveUploader struct {
	svc    *drive.Service
	parent string

	mu      sync.Mutex
	folders map[string]string
}

// NewDriveUploader authenticates with a service account credentials file.
func NewDriveUploader(ctx context.Context, cfg config.DriveConfig) (*DriveUploader, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("drive upload: credentials_file is required")
	}
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive upload: %w", err)
	}
	return newDriveUploader(svc, cfg.ParentFolderID), nil
}

func newDriveUploader(svc *drive.Service, parent string) *DriveUploader {
	if parent == "" {
		parent = "root"
	}
	return &DriveUploader{svc: svc, parent: parent, folders: make(map[string]string)}
}

func (u *DriveUploader) Name() string { return "drive" }

// Upload creates the file under the folders named by the key's directory part
// and returns the Drive file id as "drive://<id>".
func (u *DriveUploader) Upload(ctx context.Context, key string, body []byte) (string, error) {
	dir, name := path.Split(key)
	parent, err := u.ensureFolders(ctx, strings.Trim(dir, "/"))
	if err != nil {
		return "", err
	}

	f, err := u.svc.Files.Create(&drive.File{
		Name:     name,
		Parents:  []string{parent},
		MimeType: "text/csv",
	}).Media(bytes.NewReader(body)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to drive: %w", key, err)
	}
	return "drive://" + f.Id, nil
}

func (u *DriveUploader) ensureFolders(ctx context.Context, dir string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	parent := u.parent
	if dir == "" {
		return parent, nil
	}

	walked := ""
	for _, part := range strings.Split(dir, "/") {
		walked = path.Join(walked, part)
		if id, ok := u.folders[walked]; ok {
			parent = id
			continue
		}
		id, err := u.findOrCreateFolder(ctx, parent, part)
		if err != nil {
			return "", err
		}
		u.folders[walked] = id
		parent = id
	}
	return parent, nil
}

func (u *DriveUploader) findOrCreateFolder(ctx context.Context, parent, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), folderMimeType, escapeQuery(parent))
	list, err := u.svc.Files.List().Q(q).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up drive folder %s: %w", name, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	f, err := u.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parent},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create drive folder %s: %w", name, err)
	}
	return f.Id, nil
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
