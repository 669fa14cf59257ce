package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
)

const (
	defaultGraphURL = "https://graph.microsoft.com/v1.0"
	graphScope      = "https://graph.microsoft.com/.default"
	chunkAlignment  = 320 * 1024
)

type OneDriveConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	UserEmail    string
	Folder       string
	ChunkSize    int64
	GraphURL     string
	TokenURL     string
	Timeout      time.Duration
}

// OneDrive uploads through Microsoft Graph upload sessions using an app-only token.
type OneDrive struct {
	cfg   OneDriveConfig
	graph *http.Client
	raw   *http.Client
}

type uploadSession struct {
	UploadURL          string `json:"uploadUrl"`
	ExpirationDateTime string `json:"expirationDateTime"`
}

type driveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewOneDrive(cfg OneDriveConfig) (*OneDrive, error) {
	if cfg.ChunkSize <= 0 || cfg.ChunkSize%chunkAlignment != 0 {
		return nil, fmt.Errorf("chunk size %d is not a multiple of 320 KiB", cfg.ChunkSize)
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = defaultGraphURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = microsoft.AzureADEndpoint(cfg.TenantID).TokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{graphScope},
	}
	// upload URLs are pre-authenticated and reject an Authorization header
	raw := utils.NewRelayHTTPClient(utils.HTTPClientConfig{Timeout: cfg.Timeout}).HTTPClient()
	graph := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, raw))
	graph.Timeout = cfg.Timeout
	return &OneDrive{cfg: cfg, graph: graph, raw: raw}, nil
}

func (o *OneDrive) Name() string { return "onedrive" }

func (o *OneDrive) Upload(ctx context.Context, localPath string, size int64, onProgress ProgressFunc) (Receipt, error) {
	if size <= 0 {
		return Receipt{}, errors.New("refusing to upload an empty file")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return Receipt{}, fmt.Errorf("error opening file: %v", err)
	}
	defer f.Close()

	session, err := o.createSession(ctx, path.Base(localPath))
	if err != nil {
		return Receipt{}, err
	}
	log.Debug().Str("op", "storage/onedrive").Msgf("upload session for %s expires %s", localPath, session.ExpirationDateTime)

	buf := make([]byte, o.cfg.ChunkSize)
	var offset int64
	var item *driveItem
	for offset < size {
		n := min(o.cfg.ChunkSize, size-offset)
		if _, err := io.ReadFull(f, buf[:n]); err != nil {
			o.cancelSession(session.UploadURL)
			return Receipt{}, fmt.Errorf("error reading chunk at %d: %v", offset, err)
		}
		item, err = o.putChunk(ctx, session.UploadURL, buf[:n], offset, size)
		if err != nil {
			o.cancelSession(session.UploadURL)
			return Receipt{}, err
		}
		offset += n
		if onProgress != nil {
			onProgress(offset)
		}
	}

	if item == nil {
		return Receipt{Bytes: offset}, errors.New("upload finished without a drive item")
	}
	return Receipt{
		RemoteURL: item.WebURL,
		Bytes:     item.Size,
		Confirmed: item.ID != "" && item.Size == size,
	}, nil
}

func (o *OneDrive) createSession(ctx context.Context, name string) (*uploadSession, error) {
	target := o.cfg.GraphURL + "/users/" + url.PathEscape(o.cfg.UserEmail) +
		"/drive/root:" + escapePath(path.Join("/", o.cfg.Folder, name)) + ":/createUploadSession"
	body, _ := json.Marshal(map[string]any{
		"item": map[string]string{
			"@microsoft.graph.conflictBehavior": "replace",
			"name":                              name,
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.graph.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error creating upload session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error creating upload session: %s", readGraphError(resp))
	}
	var session uploadSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("error decoding upload session: %v", err)
	}
	if session.UploadURL == "" {
		return nil, errors.New("upload session has no upload url")
	}
	return &session, nil
}

// putChunk sends one byte range. The drive item is only returned for the final chunk.
func (o *OneDrive) putChunk(ctx context.Context, uploadURL string, chunk []byte, offset, total int64) (*driveItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(chunk))
	if err != nil {
		return nil, err
	}
	end := offset + int64(len(chunk)) - 1
	req.ContentLength = int64(len(chunk))
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, total))
	resp, err := o.raw.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error uploading bytes %d-%d: %v", offset, end, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusAccepted:
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	case http.StatusOK, http.StatusCreated:
		var item driveItem
		if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
			return nil, fmt.Errorf("error decoding drive item: %v", err)
		}
		return &item, nil
	default:
		return nil, fmt.Errorf("error uploading bytes %d-%d: %s", offset, end, readGraphError(resp))
	}
}

func (o *OneDrive) cancelSession(uploadURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, uploadURL, nil)
	if err != nil {
		return
	}
	resp, err := o.raw.Do(req)
	if err != nil {
		log.Debug().Str("op", "storage/onedrive").Err(err).Msg("could not cancel upload session")
		return
	}
	resp.Body.Close()
}

func readGraphError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var gerr graphError
	if json.Unmarshal(data, &gerr) == nil && gerr.Error.Code != "" {
		return fmt.Sprintf("http %d: %s: %s", resp.StatusCode, gerr.Error.Code, gerr.Error.Message)
	}
	return fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
