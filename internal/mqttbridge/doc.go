// Package mqttbridge exposes a desk to home-automation systems over MQTT.
//
// Topic layout, for prefix "godesk" and desk name "office":
//
//	godesk/office/set     commands in: a preset name, a height in mm, or stop/up/down
//	godesk/office/get     any payload requests a fresh height reading
//	godesk/office/height  height in mm, retained, published after each move or get
//	godesk/office/status  "online" or "offline", retained; "offline" is also the LWT
//	godesk/office/error   short description of the last failed command
//
// Command handling is independent of the broker: Bridge talks to a Publisher and a
// Desk, so it can be driven directly in tests. Client is the paho-backed Publisher.
package mqttbridge
