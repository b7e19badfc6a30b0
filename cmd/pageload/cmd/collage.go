package cmd

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/filmio/pageload/internal/collage"
	"github.com/filmio/pageload/internal/common/app"
)

func collageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collage [images per row]",
		Short: "Tile screenshots listed in a file into one JPEG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perRow := collage.DefaultImagesPerRow
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					log.Warnf("invalid number of images per row %q, using %d", args[0], collage.DefaultImagesPerRow)
				} else {
					perRow = n
				}
			}
			input, err := cmd.Flags().GetString("input")
			if err != nil {
				return err
			}
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			urls, err := collage.ReadUrls(input)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: time.Minute}
			if err := collage.Build(app.CreateContextWithShutdown(), client, urls, perRow, output); err != nil {
				return err
			}
			log.Infof("wrote %d screenshots to %s", len(urls), output)
			return nil
		},
	}
	cmd.Flags().String("input", "images.txt", "File with one screenshot url per line")
	cmd.Flags().String("output", "collage.jpg", "Collage file to write")
	return cmd
}
