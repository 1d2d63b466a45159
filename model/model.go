// Package model provides the server entry type shared by the stores and the API.
package model

import (
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"
)

// Entry is one remembered server: address, optional display name, and the
// time of last contact.
type Entry struct {
	Host        string
	Port        int
	DisplayName string
	LastContact time.Time
}

// Addr returns the host:port form of the entry's address.
func (e Entry) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// DisplayText returns the text the UI renders for the entry: the display
// name when set, otherwise host:port.
func (e Entry) DisplayText() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Addr()
}

// Key returns the dedup key for the entry. Host comparison is
// case-insensitive, so the key lowercases the host.
func (e Entry) Key() string {
	return net.JoinHostPort(strings.ToLower(e.Host), strconv.Itoa(e.Port))
}

// wireEntry is the persisted JSON shape. Older files used "host" instead of
// "ip", so the decoder accepts both.
type wireEntry struct {
	IP            string    `json:"ip,omitempty"`
	Host          string    `json:"host,omitempty"`
	Port          int       `json:"port"`
	ServerName    string    `json:"serverName,omitempty"`
	LastConnected time.Time `json:"lastConnected"`
}

// MarshalJSON encodes the entry in the persisted wire format.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		IP:            e.Host,
		Port:          e.Port,
		ServerName:    e.DisplayName,
		LastConnected: e.LastContact,
	})
}

// UnmarshalJSON decodes the persisted wire format, preferring "ip" over the
// legacy "host" field when both are present.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var w wireEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	host := w.IP
	if host == "" {
		host = w.Host
	}
	e.Host = host
	e.Port = w.Port
	e.DisplayName = w.ServerName
	e.LastContact = w.LastConnected
	return nil
}
