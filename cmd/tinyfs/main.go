package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/Swizzzer/tinyfs/minifat"
	"github.com/Swizzzer/tinyfs/utilities/compression"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "tinyfs",
		Usage: "Manage MINIFAT disk image files",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe a volume",
				Action:    formatVolume,
				ArgsUsage: "IMAGE",
			},
			{
				Name:      "write",
				Usage:     "Store a local file on the volume",
				Action:    writeFile,
				ArgsUsage: "IMAGE NAME LOCAL_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "method",
						Usage: "compression method: none, rle or deflate",
						Value: "deflate",
					},
				},
			},
			{
				Name:      "cat",
				Usage:     "Write a stored file to stdout",
				Action:    catFile,
				ArgsUsage: "IMAGE NAME",
			},
			{
				Name:      "ls",
				Usage:     "List the files on the volume",
				Action:    listFiles,
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "emit the listing as CSV",
					},
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a stored file",
				Action:    removeFile,
				ArgsUsage: "IMAGE NAME",
			},
			{
				Name:      "stats",
				Usage:     "Show a stored file's compression statistics",
				Action:    showStats,
				ArgsUsage: "IMAGE NAME",
			},
			{
				Name:      "check",
				Usage:     "Verify the volume's structural invariants",
				Action:    checkVolume,
				ArgsUsage: "IMAGE",
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func requireArgs(context *cli.Context, count int) error {
	if context.Args().Len() != count {
		return fmt.Errorf(
			"expected %d argument(s), got %d; usage: %s",
			count,
			context.Args().Len(),
			context.Command.ArgsUsage)
	}
	return nil
}

func formatVolume(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}

	volume, err := minifat.Format(context.Args().Get(0))
	if err != nil {
		return err
	}
	return volume.Close()
}

func writeFile(context *cli.Context) error {
	if err := requireArgs(context, 3); err != nil {
		return err
	}

	method, err := compression.MethodFromLabel(context.String("method"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(context.Args().Get(2))
	if err != nil {
		return err
	}

	volume, err := minifat.GetOrCreate(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer volume.Close()

	return volume.WriteFile(context.Args().Get(1), data, method)
}

func catFile(context *cli.Context) error {
	if err := requireArgs(context, 2); err != nil {
		return err
	}

	volume, err := minifat.Mount(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer volume.Close()

	data, err := volume.ReadFile(context.Args().Get(1))
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)
	return err
}

// listRow is one `ls` line, tagged for CSV output.
type listRow struct {
	Name       string `csv:"name"`
	Size       uint32 `csv:"size"`
	StoredSize uint32 `csv:"stored_size"`
	Method     string `csv:"method"`
}

func listFiles(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}

	volume, err := minifat.Mount(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer volume.Close()

	entries, err := volume.ListFiles()
	if err != nil {
		return err
	}

	rows := make([]listRow, len(entries))
	for i, entry := range entries {
		rows[i] = listRow{
			Name:       entry.Name,
			Size:       entry.Size,
			StoredSize: entry.StoredSize,
			Method:     entry.CompressionMethod.Label(),
		}
	}

	if context.Bool("csv") {
		text, err := gocsv.MarshalString(&rows)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tSIZE\tSTORED\tMETHOD")
	for _, row := range rows {
		fmt.Fprintf(
			writer, "%s\t%d\t%d\t%s\n", row.Name, row.Size, row.StoredSize, row.Method)
	}
	return writer.Flush()
}

func removeFile(context *cli.Context) error {
	if err := requireArgs(context, 2); err != nil {
		return err
	}

	volume, err := minifat.Mount(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer volume.Close()

	return volume.Remove(context.Args().Get(1))
}

func showStats(context *cli.Context) error {
	if err := requireArgs(context, 2); err != nil {
		return err
	}

	volume, err := minifat.Mount(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer volume.Close()

	stats, err := volume.CompressionStats(context.Args().Get(1))
	if err != nil {
		return err
	}

	fmt.Printf("original:  %d bytes\n", stats.OriginalSize)
	fmt.Printf("stored:    %d bytes\n", stats.StoredSize)
	fmt.Printf("ratio:     %.1f%%\n", stats.Ratio)
	fmt.Printf("method:    %s\n", stats.MethodLabel)
	return nil
}

func checkVolume(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}

	volume, err := minifat.Mount(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer volume.Close()

	if err := volume.Fsck(); err != nil {
		return err
	}
	fmt.Println("volume is clean")
	return nil
}
