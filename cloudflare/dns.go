package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// API response wrappers
type apiResponse[T any] struct {
	Success bool         `json:"success"`
	Errors  []apiMessage `json:"errors"`
	Result  T            `json:"result"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Zone represents a Cloudflare Zone
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DNSRecord represents a DNS record
type DNSRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// SyncResult says what Sync had to do.
type SyncResult int

const (
	Unchanged SyncResult = iota
	Created
	Updated
)

func (r SyncResult) String() string {
	switch r {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// call performs a request and decodes a successful envelope into out.
func (c *Client) call(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.buildURL(path), body)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FindZoneID looks up the Zone ID by exact zone name.
func (c *Client) FindZoneID(ctx context.Context, zoneName string) (string, error) {
	if zoneName == "" {
		return "", errors.New("zone name cannot be empty")
	}
	var out apiResponse[[]Zone]
	if err := c.call(ctx, http.MethodGet, "zones?name="+url.QueryEscape(zoneName), nil, &out); err != nil {
		return "", err
	}
	if !out.Success || len(out.Result) == 0 {
		return "", fmt.Errorf("zone not found: %s", zoneName)
	}
	return out.Result[0].ID, nil
}

// GetRecord fetches a record of the given type by FQDN. A missing record is
// reported as nil without error.
func (c *Client) GetRecord(ctx context.Context, zoneID, recordType, fqdn string) (*DNSRecord, error) {
	if zoneID == "" || fqdn == "" || recordType == "" {
		return nil, errors.New("zoneID, record type and fqdn are required")
	}
	params := url.Values{}
	params.Set("type", recordType)
	params.Set("name", fqdn)
	var out apiResponse[[]DNSRecord]
	if err := c.call(ctx, http.MethodGet, "zones/"+zoneID+"/dns_records?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if !out.Success || len(out.Result) == 0 {
		return nil, nil
	}
	rec := out.Result[0]
	return &rec, nil
}

// CreateRecord creates a DNS record.
func (c *Client) CreateRecord(ctx context.Context, zoneID string, payload DNSRecord) (*DNSRecord, error) {
	var out apiResponse[DNSRecord]
	if err := c.call(ctx, http.MethodPost, "zones/"+zoneID+"/dns_records", payload, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, errors.New("create dns record unsuccessful")
	}
	return &out.Result, nil
}

// UpdateRecord replaces an existing DNS record by id.
func (c *Client) UpdateRecord(ctx context.Context, zoneID, recordID string, payload DNSRecord) (*DNSRecord, error) {
	if zoneID == "" || recordID == "" {
		return nil, errors.New("zoneID and recordID are required")
	}
	var out apiResponse[DNSRecord]
	if err := c.call(ctx, http.MethodPut, "zones/"+zoneID+"/dns_records/"+recordID, payload, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, errors.New("update dns record unsuccessful")
	}
	return &out.Result, nil
}

// Sync makes the record named want.Name of type want.Type match want,
// creating it if needed.
func (c *Client) Sync(ctx context.Context, zoneID string, want DNSRecord) (SyncResult, error) {
	rec, err := c.GetRecord(ctx, zoneID, want.Type, want.Name)
	if err != nil {
		return Unchanged, err
	}
	if rec == nil {
		if _, err := c.CreateRecord(ctx, zoneID, want); err != nil {
			return Unchanged, err
		}
		return Created, nil
	}
	if rec.Content == want.Content && rec.TTL == want.TTL && rec.Proxied == want.Proxied {
		return Unchanged, nil
	}
	if _, err := c.UpdateRecord(ctx, zoneID, rec.ID, want); err != nil {
		return Unchanged, err
	}
	return Updated, nil
}
