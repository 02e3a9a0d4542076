package publicip_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jsirianni/publicip/publicip"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	status  int
	body    string
	err     error
	delay   time.Duration
	bodyErr error
}

func (s stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	var rc io.ReadCloser
	if s.bodyErr != nil {
		rc = io.NopCloser(errReader{s.bodyErr})
	} else {
		rc = io.NopCloser(strings.NewReader(s.body))
	}
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return &http.Response{
		StatusCode: s.status,
		Status:     fmt.Sprintf("%d %s", s.status, http.StatusText(s.status)),
		Body:       rc,
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func TestFetch_TableDriven(t *testing.T) {
	type testCase struct {
		name       string
		family     publicip.Family
		transport  stubTransport
		timeout    time.Duration
		wantIP     string
		wantKind   publicip.ErrorKind
		wantReason string
	}

	cases := []testCase{
		{
			name:      "ipv4 success",
			family:    publicip.IPv4,
			transport: stubTransport{body: `{"ip":"203.0.113.42"}`},
			wantIP:    "203.0.113.42",
		},
		{
			name:      "ipv6 success kept verbatim",
			family:    publicip.IPv6,
			transport: stubTransport{body: `{"ip":"2001:0db8:0000:0000:0000:0000:0000:0001"}`},
			wantIP:    "2001:0db8:0000:0000:0000:0000:0000:0001",
		},
		{
			name:      "dual stack endpoint answers ipv4",
			family:    publicip.IPv6,
			transport: stubTransport{body: `{"ip":"203.0.113.42"}`},
			wantIP:    "203.0.113.42",
		},
		{
			name:       "ipv6 rejected for ipv4 family",
			family:     publicip.IPv4,
			transport:  stubTransport{body: `{"ip":"2001:db8::1"}`},
			wantKind:   publicip.ErrDecode,
			wantReason: "not an ipv4 address",
		},
		{
			name:       "non-2xx status",
			family:     publicip.IPv4,
			transport:  stubTransport{status: http.StatusInternalServerError, body: "error"},
			wantKind:   publicip.ErrHTTPStatus,
			wantReason: "500",
		},
		{
			name:       "plain text body",
			family:     publicip.IPv4,
			transport:  stubTransport{body: "203.0.113.42"},
			wantKind:   publicip.ErrDecode,
			wantReason: "decode response",
		},
		{
			name:       "missing ip field",
			family:     publicip.IPv6,
			transport:  stubTransport{body: `{"address":"2001:db8::1"}`},
			wantKind:   publicip.ErrDecode,
			wantReason: "missing ip field",
		},
		{
			name:       "ip field not an address",
			family:     publicip.IPv6,
			transport:  stubTransport{body: `{"ip":"hello"}`},
			wantKind:   publicip.ErrDecode,
			wantReason: "invalid ip address",
		},
		{
			name:       "connection refused",
			family:     publicip.IPv4,
			transport:  stubTransport{err: errors.New("connection refused")},
			wantKind:   publicip.ErrNetwork,
			wantReason: "connection refused",
		},
		{
			name:       "body read error",
			family:     publicip.IPv4,
			transport:  stubTransport{bodyErr: errors.New("boom")},
			wantKind:   publicip.ErrNetwork,
			wantReason: "boom",
		},
		{
			name:       "deadline exceeded during roundtrip",
			family:     publicip.IPv6,
			transport:  stubTransport{body: `{"ip":"2001:db8::1"}`, delay: 50 * time.Millisecond},
			timeout:    10 * time.Millisecond,
			wantKind:   publicip.ErrNetwork,
			wantReason: context.DeadlineExceeded.Error(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			timeout := tc.timeout
			if timeout == 0 {
				timeout = 2 * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			f, err := publicip.NewFetcher(publicip.WithHTTPClient(&http.Client{Transport: tc.transport}))
			require.NoError(t, err)

			res := f.Fetch(ctx, tc.family)
			require.Equal(t, tc.family, res.Family)
			require.False(t, res.FetchedAt.IsZero())
			if tc.wantReason != "" {
				require.True(t, res.Failed)
				require.Empty(t, res.Value)
				require.Equal(t, tc.wantKind, res.Kind)
				require.Contains(t, res.ErrorReason, tc.wantReason)
				return
			}
			require.False(t, res.Failed)
			require.Equal(t, publicip.ErrNone, res.Kind)
			require.Equal(t, tc.wantIP, res.Value)
		})
	}
}

func TestFetch_RequestShape(t *testing.T) {
	var got http.Header
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		paths = append(paths, r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v6" {
			fmt.Fprint(w, `{"ip":"2001:db8::1"}`)
			return
		}
		fmt.Fprint(w, `{"ip":"203.0.113.7"}`)
	}))
	defer srv.Close()

	stamp := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
	f, err := publicip.NewFetcher(
		publicip.WithIPv4URL(srv.URL+"/v4"),
		publicip.WithIPv6URL(srv.URL+"/v6"),
		publicip.WithHTTPClient(srv.Client()),
		publicip.WithUserAgent("publicip-test"),
		publicip.WithClock(func() time.Time { return stamp }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	res := f.Fetch(ctx, publicip.IPv4)
	require.False(t, res.Failed, res.ErrorReason)
	require.Equal(t, "203.0.113.7", res.Value)
	require.Equal(t, stamp, res.FetchedAt)

	require.Equal(t, "no-cache, no-store", got.Get("Cache-Control"))
	require.Equal(t, "no-cache", got.Get("Pragma"))
	require.Equal(t, "application/json", got.Get("Accept"))
	require.Equal(t, "publicip-test", got.Get("User-Agent"))

	res = f.Fetch(ctx, publicip.IPv6)
	require.False(t, res.Failed, res.ErrorReason)
	require.Equal(t, "2001:db8::1", res.Value)
	require.Equal(t, []string{"/v4", "/v6"}, paths)
}

func TestFetch_UnknownFamily(t *testing.T) {
	f, err := publicip.NewFetcher()
	require.NoError(t, err)

	res := f.Fetch(context.Background(), publicip.Family(9))
	require.True(t, res.Failed)
	require.Contains(t, res.ErrorReason, "unsupported family")
}

func TestNewFetcher_RejectsBadURL(t *testing.T) {
	_, err := publicip.NewFetcher(publicip.WithIPv4URL("ftp://example.com/ip"))
	require.Error(t, err)

	_, err = publicip.NewFetcher(publicip.WithIPv6URL("https://"))
	require.Error(t, err)
}

func TestEngineWithHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v4" {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ip":"2001:0db8:0000:0000:0000:0000:0000:0001"}`)
	}))
	defer srv.Close()

	f, err := publicip.NewFetcher(
		publicip.WithIPv4URL(srv.URL+"/v4"),
		publicip.WithIPv6URL(srv.URL+"/v6"),
		publicip.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	p := &statePresenter{}
	e := publicip.NewEngine(f, p)
	e.RequestRefresh()
	e.Wait()

	st := e.State()
	require.Equal(t, publicip.ErrorMarker, st.FullIPv4)
	require.Equal(t, "2001:0db8:0000:0000:0000:0000:0000:0001", st.FullIPv6)
	require.Equal(t, "2001::0001", st.ShortForm)
	require.Contains(t, st.LastError, "503")
	require.Equal(t, st, p.last)
}

type statePresenter struct {
	last publicip.DisplayState
}

func (p *statePresenter) Publish(s publicip.DisplayState) { p.last = s }
func (p *statePresenter) PublishCountdown(int)            {}
