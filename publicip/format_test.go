package publicip_test

import (
	"testing"

	"github.com/jsirianni/publicip/publicip"
	"github.com/stretchr/testify/require"
)

func TestFormatAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "203.0.113.7", want: "203.0.113.7"},
		{in: "10.0.0.1", want: "10.0.0.1"},
		{in: "2001:0db8:0000:0000:0000:0000:0000:0001", want: "2001::0001"},
		{in: "2001:db8::1", want: "2001::1"},
		{in: "2a02:1234:5:6:7:8:9:abcd", want: "2a02::abcd"},
		{in: "::1", want: "::1"},
		{in: "a:b", want: "a:b"},
		{in: "", want: ""},
		{in: publicip.ErrorMarker, want: publicip.ErrorMarker},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := publicip.FormatAddress(tc.in)
			require.Equal(t, tc.want, got)
			// deterministic
			require.Equal(t, got, publicip.FormatAddress(tc.in))
		})
	}
}

func TestParseFamily(t *testing.T) {
	f, err := publicip.ParseFamily("IPv6")
	require.NoError(t, err)
	require.Equal(t, publicip.IPv6, f)

	f, err = publicip.ParseFamily("4")
	require.NoError(t, err)
	require.Equal(t, publicip.IPv4, f)
	require.Equal(t, "ipv4", f.String())

	_, err = publicip.ParseFamily("ipx")
	require.Error(t, err)
}

func TestDisplayState_Preferred(t *testing.T) {
	s := publicip.DisplayState{FullIPv4: "203.0.113.7", FullIPv6: publicip.ErrorMarker}
	v, ok := s.Preferred()
	require.True(t, ok)
	require.Equal(t, "203.0.113.7", v)

	s.FullIPv6 = "2001:db8::1"
	v, ok = s.Preferred()
	require.True(t, ok)
	require.Equal(t, "2001:db8::1", v)

	_, ok = publicip.DisplayState{FullIPv4: publicip.PlaceholderLoading, FullIPv6: publicip.ErrorMarker}.Preferred()
	require.False(t, ok)

	v, ok = s.Full(publicip.IPv4)
	require.True(t, ok)
	require.Equal(t, "203.0.113.7", v)
}
