package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const realityStream = `{"network":"tcp","security":"reality","realitySettings":{"serverNames":["cdn.example.com"],"shortIds":["ab12"],"settings":{"publicKey":"pbk-value"}}}`

func TestSynthesize(t *testing.T) {
	inbound := &Inbound{Port: 443, StreamSettings: realityStream}
	client := &RemoteClient{
		ID:    "3b1f2a9c-0d4e-4f6a-8b7c-1d2e3f4a5b6c",
		Flow:  "xtls-rprx-vision",
		Email: "user@example.com",
	}

	link, err := Synthesize(inbound, client, "vpn.example.com")

	require.NoError(t, err)
	assert.Equal(t,
		"vless://3b1f2a9c-0d4e-4f6a-8b7c-1d2e3f4a5b6c@vpn.example.com:443/?type=tcp&security=reality&pbk=pbk-value&fp=random&sni=cdn.example.com&sid=ab12&spx=%2F&flow=xtls-rprx-vision#VPN_user_example.com",
		link)
}

func TestSynthesize_LabelFallsBackToRemark(t *testing.T) {
	inbound := &Inbound{Port: 443, StreamSettings: realityStream}
	client := &RemoteClient{ID: "uuid-1", Remark: "user@example.com"}

	link, err := Synthesize(inbound, client, "vpn.example.com")

	require.NoError(t, err)
	assert.Contains(t, link, "#VPN_user_example.com")
}

func TestSynthesize_MissingFields(t *testing.T) {
	cases := []struct {
		name    string
		inbound Inbound
		client  RemoteClient
		host    string
	}{
		{
			name:    "empty host",
			inbound: Inbound{Port: 443, StreamSettings: realityStream},
			client:  RemoteClient{ID: "uuid-1"},
			host:    "",
		},
		{
			name:    "missing port",
			inbound: Inbound{StreamSettings: realityStream},
			client:  RemoteClient{ID: "uuid-1"},
			host:    "vpn.example.com",
		},
		{
			name:    "unparseable stream settings",
			inbound: Inbound{Port: 443, StreamSettings: "not json"},
			client:  RemoteClient{ID: "uuid-1"},
			host:    "vpn.example.com",
		},
		{
			name:    "missing public key",
			inbound: Inbound{Port: 443, StreamSettings: `{"realitySettings":{"serverNames":["sni"],"shortIds":["sid"]}}`},
			client:  RemoteClient{ID: "uuid-1"},
			host:    "vpn.example.com",
		},
		{
			name:    "missing server names",
			inbound: Inbound{Port: 443, StreamSettings: `{"realitySettings":{"shortIds":["sid"],"settings":{"publicKey":"pbk"}}}`},
			client:  RemoteClient{ID: "uuid-1"},
			host:    "vpn.example.com",
		},
		{
			name:    "missing short ids",
			inbound: Inbound{Port: 443, StreamSettings: `{"realitySettings":{"serverNames":["sni"],"settings":{"publicKey":"pbk"}}}`},
			client:  RemoteClient{ID: "uuid-1"},
			host:    "vpn.example.com",
		},
		{
			name:    "client without id",
			inbound: Inbound{Port: 443, StreamSettings: realityStream},
			client:  RemoteClient{Email: "user@example.com"},
			host:    "vpn.example.com",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Synthesize(&tc.inbound, &tc.client, tc.host)
			assert.ErrorIs(t, err, ErrMalformedInbound)
		})
	}
}
