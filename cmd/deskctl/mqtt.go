package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlsorensen/godesk/internal/mqttbridge"
)

var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "Bridge the desk to an MQTT broker",
	Long: `Connect to the broker configured in the mqtt section of the config file
and accept desk commands until interrupted.

Publish a preset name, a height in mm, or stop/up/down to <prefix>/<desk>/set.
The height is published (retained) to <prefix>/<desk>/height.`,
	RunE: runMQTT,
}

func init() {
	rootCmd.AddCommand(mqttCmd)
}

func runMQTT(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.MQTT.Enabled {
		return fmt.Errorf("mqtt is disabled; set mqtt.enabled in %s", cfg.Path())
	}

	ctrl := openController(cfg)
	defer ctrl.Close()

	topics := mqttbridge.Topics{Prefix: cfg.MQTT.TopicPrefix, Desk: cfg.MQTT.DeskName}
	client, err := mqttbridge.Connect(cfg.MQTT, topics)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Printf("Bridging desk to %s:%d, commands on %s (Ctrl+C to stop)\n", cfg.MQTT.Host, cfg.MQTT.Port, topics.Set())
	return mqttbridge.New(ctrl, cfg.Presets, topics, client).Run(cmd.Context(), client)
}
