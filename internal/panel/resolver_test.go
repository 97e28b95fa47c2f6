package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inboundWith(protocol, settings string) Inbound {
	return Inbound{Protocol: protocol, Settings: settings, StreamSettings: "{}"}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		name     string
		inbounds []Inbound
		key      string
		wantID   string
		wantErr  error
	}{
		{
			name: "match by email",
			inbounds: []Inbound{
				inboundWith("vless", `{"clients":[{"id":"uuid-1","email":"user@example.com"}]}`),
			},
			key:    "user@example.com",
			wantID: "uuid-1",
		},
		{
			name: "case and space insensitive",
			inbounds: []Inbound{
				inboundWith("vless", `{"clients":[{"id":"uuid-1","email":"User@Example.com"}]}`),
			},
			key:    "  user@example.com ",
			wantID: "uuid-1",
		},
		{
			name: "match by remark",
			inbounds: []Inbound{
				inboundWith("vless", `{"clients":[{"id":"uuid-2","email":"","remark":"user@example.com"}]}`),
			},
			key:    "user@example.com",
			wantID: "uuid-2",
		},
		{
			name: "non-vless inbound skipped",
			inbounds: []Inbound{
				inboundWith("vmess", `{"clients":[{"id":"uuid-1","email":"user@example.com"}]}`),
			},
			key:     "user@example.com",
			wantErr: ErrNotFound,
		},
		{
			name: "unparseable inbound skipped",
			inbounds: []Inbound{
				inboundWith("vless", `not json`),
				inboundWith("vless", `{"clients":[{"id":"uuid-3","email":"user@example.com"}]}`),
			},
			key:    "user@example.com",
			wantID: "uuid-3",
		},
		{
			name: "first match wins",
			inbounds: []Inbound{
				inboundWith("vless", `{"clients":[{"id":"uuid-1","email":"user@example.com"},{"id":"uuid-2","email":"user@example.com"}]}`),
			},
			key:    "user@example.com",
			wantID: "uuid-1",
		},
		{
			name:     "empty key",
			inbounds: []Inbound{inboundWith("vless", `{"clients":[{"id":"uuid-1","email":""}]}`)},
			key:      "   ",
			wantErr:  ErrNotFound,
		},
		{
			name:     "no inbounds",
			inbounds: nil,
			key:      "user@example.com",
			wantErr:  ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, inbound, err := Resolve(tc.inbounds, tc.key)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, client)
			require.NotNil(t, inbound)
			assert.Equal(t, tc.wantID, client.ID)
		})
	}
}

func TestStat(t *testing.T) {
	in := Inbound{ClientStats: []ClientStat{
		{Email: "A@b.com", Up: 10, Down: 20},
		{Email: "c@d.com", Up: 1, Down: 2},
	}}

	stat := Stat(&in, " a@b.com ")
	require.NotNil(t, stat)
	assert.Equal(t, int64(10), stat.Up)

	assert.Nil(t, Stat(&in, "missing@b.com"))
}
