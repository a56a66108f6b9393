package cmd

import (
	"github.com/spf13/cobra"

	"aurora-assistant/internal/audio"
	"aurora-assistant/internal/config"
	"aurora-assistant/internal/logging"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio devices and their IDs",
		Long:  "Lists every audio device PortAudio can see, so INPUT_DEVICE_ID and OUTPUT_DEVICE_ID can be set to something other than the system default.",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, _ := config.Load()
			log, err := logging.Setup(cfg.LogLevel, "")
			if err != nil {
				return err
			}
			return audio.LogDevices(log)
		},
	}
}
