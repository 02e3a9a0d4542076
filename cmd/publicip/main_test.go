package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v4":
			fmt.Fprint(w, `{"ip":"203.0.113.7"}`)
		case "/v6":
			fmt.Fprint(w, `{"ip":"2001:0db8:0000:0000:0000:0000:0000:0001"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestOnceJSON(t *testing.T) {
	srv := newEchoServer(t)

	out, err := execute(t, "once", "--json", "--log-level", "error",
		"--ipv4-url", srv.URL+"/v4", "--ipv6-url", srv.URL+"/v6")
	require.NoError(t, err)

	var got onceOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, onceOutput{
		Short: "2001::0001",
		IPv4:  "203.0.113.7",
		IPv6:  "2001:0db8:0000:0000:0000:0000:0000:0001",
	}, got)
}

func TestOncePartialFailure(t *testing.T) {
	srv := newEchoServer(t)

	out, err := execute(t, "once", "--log-level", "error",
		"--ipv4-url", srv.URL+"/missing", "--ipv6-url", srv.URL+"/v6")
	require.NoError(t, err)
	require.Equal(t, "2001::0001  (ipv4 Error, ipv6 2001:0db8:0000:0000:0000:0000:0000:0001)\n", out)
}

func TestRejectsBadConfig(t *testing.T) {
	_, err := execute(t, "once", "--interval", "0s")
	require.Error(t, err)

	_, err = execute(t, "copy", "--family", "ipx")
	require.ErrorContains(t, err, "unknown address family")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "publicip dev")
}
