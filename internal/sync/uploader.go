package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/araeLaver/petchecky-sub002/internal/errors"
	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// DefaultUploadTimeout bounds a single upload request.
const DefaultUploadTimeout = 15 * time.Second

// HTTPUploader pushes one collection's mutations to the server REST API.
// Each mutation type maps to one request: create POSTs to the collection
// path, update PUTs to the record path, delete DELETEs the record path.
// Exactly one request is issued per attempt; retry policy lives in the
// engine, never here.
type HTTPUploader struct {
	client     *http.Client
	baseURL    string
	path       string
	collection models.Collection
}

// NewHTTPUploader creates an uploader for one collection. path is the
// server-side resource path, e.g. "/api/photos".
func NewHTTPUploader(client *http.Client, baseURL, path string, collection models.Collection) *HTTPUploader {
	if client == nil {
		client = &http.Client{Timeout: DefaultUploadTimeout}
	}
	return &HTTPUploader{
		client:     client,
		baseURL:    baseURL,
		path:       path,
		collection: collection,
	}
}

// NewUploaders wires the standard uploader set for every syncable
// collection against one API base URL.
func NewUploaders(client *http.Client, baseURL string) map[models.Collection]Uploader {
	return map[models.Collection]Uploader{
		models.CollectionPhotos:       NewHTTPUploader(client, baseURL, "/api/photos", models.CollectionPhotos),
		models.CollectionAlbums:       NewHTTPUploader(client, baseURL, "/api/albums", models.CollectionAlbums),
		models.CollectionOfflinePets:  NewHTTPUploader(client, baseURL, "/api/pets", models.CollectionOfflinePets),
		models.CollectionOfflineChats: NewHTTPUploader(client, baseURL, "/api/chats", models.CollectionOfflineChats),
	}
}

// Upload sends the item's mutation to the server. A 2xx response is
// success; a 409 is decoded into *ConflictError so the engine can
// reconcile; anything else is a failure that counts against the item's
// retries.
func (u *HTTPUploader) Upload(ctx context.Context, item *models.PendingSyncItem) error {
	if item.Store != u.collection {
		return errors.New(errors.ErrUploadFailed,
			fmt.Sprintf("item for %s routed to %s uploader", item.Store, u.collection))
	}
	if err := u.decodePayload(item); err != nil {
		return err
	}

	req, err := u.buildRequest(ctx, item)
	if err != nil {
		return err
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrUploadFailed, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return decodeConflict(resp.Body)
	default:
		return errors.New(errors.ErrUploadFailed,
			fmt.Sprintf("server returned %d for %s %s", resp.StatusCode, item.Type, item.Store))
	}
}

// decodePayload checks the item's data against the collection's record
// shape before anything goes on the wire. Deletes carry only an id, so
// they skip the model decode.
func (u *HTTPUploader) decodePayload(item *models.PendingSyncItem) error {
	if item.Type == models.MutationDelete {
		if item.RecordID() == "" {
			return errors.New(errors.ErrInvalid, "delete payload missing id")
		}
		return nil
	}

	var target any
	switch u.collection {
	case models.CollectionPhotos:
		target = &models.Photo{}
	case models.CollectionAlbums:
		target = &models.Album{}
	case models.CollectionOfflinePets:
		target = &models.OfflinePet{}
	case models.CollectionOfflineChats:
		target = &models.OfflineChat{}
	default:
		return errors.New(errors.ErrUnknownCollection, string(u.collection))
	}

	if err := json.Unmarshal(item.Data, target); err != nil {
		return errors.Wrap(errors.ErrInvalid,
			fmt.Sprintf("payload does not decode as a %s record", u.collection), err)
	}
	return nil
}

func (u *HTTPUploader) buildRequest(ctx context.Context, item *models.PendingSyncItem) (*http.Request, error) {
	var (
		method string
		url    string
		body   io.Reader
	)

	switch item.Type {
	case models.MutationCreate:
		method = http.MethodPost
		url = u.baseURL + u.path
		body = bytes.NewReader(item.Data)
	case models.MutationUpdate:
		method = http.MethodPut
		url = u.baseURL + u.path + "/" + item.RecordID()
		body = bytes.NewReader(item.Data)
	case models.MutationDelete:
		method = http.MethodDelete
		url = u.baseURL + u.path + "/" + item.RecordID()
	default:
		return nil, errors.New(errors.ErrInvalid, "unknown mutation type "+string(item.Type))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUploadFailed, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// conflictBody is the server's 409 payload: its current version of the
// record plus the server-side modification time in unix milliseconds.
type conflictBody struct {
	Record    map[string]any `json:"record"`
	UpdatedAt int64          `json:"updatedAt"`
}

func decodeConflict(r io.Reader) error {
	var body conflictBody
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return errors.Wrap(errors.ErrSyncConflict, "undecodable conflict response", err)
	}
	return &ConflictError{
		ServerData:      body.Record,
		ServerTimestamp: body.UpdatedAt,
	}
}
