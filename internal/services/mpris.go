// MPRIS2 (D-Bus) implementation of [Player]
//
// See https://specifications.freedesktop.org/mpris-spec/latest/Player_Interface.html
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisNoTrack     = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
	propertiesGet    = "org.freedesktop.DBus.Properties.Get"
)

// propertyReader is the part of [dbus.BusObject] the player needs.
type propertyReader interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// MPRISPlayer reads playback state from a desktop player on the session bus.
type MPRISPlayer struct {
	conn    *dbus.Conn
	service string
	obj     propertyReader
}

// NewMPRISPlayer connects to the session bus and binds to player.
//
// player may be a full bus name, a short name such as "spotify", or empty to use the first MPRIS player found.
func NewMPRISPlayer(player string) (*MPRISPlayer, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to session bus: %v", shared.ErrServiceUnavailable, err)
	}

	service, err := resolveMPRISService(conn, player)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &MPRISPlayer{
		conn:    conn,
		service: service,
		obj:     conn.Object(service, mprisPath),
	}, nil
}

// resolveMPRISService expands a short player name or finds the first MPRIS player on the bus.
func resolveMPRISService(conn *dbus.Conn, player string) (string, error) {
	if player != "" {
		if strings.HasPrefix(player, mprisPrefix) {
			return player, nil
		}
		return mprisPrefix + player, nil
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return "", fmt.Errorf("%w: failed to list bus names: %v", shared.ErrServiceUnavailable, err)
	}
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no MPRIS player found on the session bus", shared.ErrServiceUnavailable)
}

func (m *MPRISPlayer) Name() string {
	return "MPRIS " + strings.TrimPrefix(m.service, mprisPrefix)
}

// Close releases the bus connection.
func (m *MPRISPlayer) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}

// CurrentlyPlaying implements [Player]. A stopped player or one without a title reports nothing playing.
func (m *MPRISPlayer) CurrentlyPlaying(ctx context.Context) (*models.Playback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status, err := m.property(ctx, "PlaybackStatus")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to get playback status: %v", shared.ErrServiceUnavailable, err)
	}
	state, _ := status.Value().(string)
	if state == "" || state == "Stopped" {
		return &models.Playback{}, nil
	}

	prop, err := m.property(ctx, "Metadata")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to get metadata: %v", shared.ErrServiceUnavailable, err)
	}
	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected metadata type %T", shared.ErrAPIRequest, prop.Value())
	}

	track := trackFromMetadata(metadata)
	if track.Title == "" {
		return &models.Playback{}, nil
	}

	var position time.Duration
	if pos, err := m.property(ctx, "Position"); err == nil {
		position = microseconds(pos.Value())
	}

	return &models.Playback{
		Track:    &track,
		Position: position,
		Playing:  state == "Playing",
	}, nil
}

// property reads one Player property; ctx bounds the bus round trip.
func (m *MPRISPlayer) property(ctx context.Context, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := m.obj.CallWithContext(ctx, propertiesGet, 0, mprisPlayerIface, name).Store(&v)
	return v, err
}

// trackFromMetadata maps xesam/mpris metadata keys to a [models.Track].
func trackFromMetadata(metadata map[string]dbus.Variant) models.Track {
	track := models.Track{
		Title:    metadataString(metadata, "xesam:title"),
		Artist:   metadataArtist(metadata, "xesam:artist"),
		Album:    metadataString(metadata, "xesam:album"),
		Duration: microseconds(metadataValue(metadata, "mpris:length")),
	}

	if v, ok := metadataValue(metadata, "mpris:trackid").(dbus.ObjectPath); ok {
		track.ID = string(v)
	} else {
		track.ID = metadataString(metadata, "mpris:trackid")
	}
	// NoTrack is a placeholder shared by every track
	if track.ID == mprisNoTrack {
		track.ID = ""
	}
	if track.ID == "" {
		track.ID = metadataString(metadata, "xesam:url")
	}
	if track.ID == "" {
		track.ID = shared.NormalizeTrackKey(track.Title, track.Artist)
	}
	return track
}

func metadataValue(metadata map[string]dbus.Variant, key string) any {
	v, ok := metadata[key]
	if !ok {
		return nil
	}
	return v.Value()
}

func metadataString(metadata map[string]dbus.Variant, key string) string {
	s, _ := metadataValue(metadata, key).(string)
	return s
}

func metadataArtist(metadata map[string]dbus.Variant, key string) string {
	switch v := metadataValue(metadata, key).(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	}
	return ""
}

// microseconds converts an MPRIS time value, negative values clamp to zero.
func microseconds(v any) time.Duration {
	var us int64
	switch n := v.(type) {
	case int64:
		us = n
	case uint64:
		us = int64(n)
	case int32:
		us = int64(n)
	case uint32:
		us = int64(n)
	}
	if us < 0 {
		return 0
	}
	return time.Duration(us) * time.Microsecond
}
