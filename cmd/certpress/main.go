// certpress - certificate template console and tooling.
//
// Usage:
//
//	certpress serve [--port 8080]
//	certpress render -o <file> --template <path> [--background <path>] [--overlay]
//	certpress verify <certificateId>
//	certpress init
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/moocs-ptdv/certpress/clients/server"
	"github.com/moocs-ptdv/certpress/pkg/api"
	"github.com/moocs-ptdv/certpress/pkg/config"
	"github.com/moocs-ptdv/certpress/pkg/template"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "render":
		if err := runRender(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "verify":
		if err := runVerify(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "init":
		if err := runInit(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var port string
	fs.StringVar(&port, "port", "", "Listen port (overrides SERVER_PORT)")
	fs.StringVar(&port, "p", "", "Listen port (overrides SERVER_PORT)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.ServerPort = port
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return server.Run(cfg, logger)
}

// runRender renders a template preview to a PNG file, offline when the
// background is a local file.
func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		output     string
		tmplPath   string
		bgPath     string
		overlay    bool
		valueFlags stringList
	)
	fs.StringVar(&output, "o", "", "Output PNG path")
	fs.StringVar(&output, "output", "", "Output PNG path")
	fs.StringVar(&tmplPath, "template", "", "Path to template JSON")
	fs.StringVar(&bgPath, "background", "", "Local background image (overrides the template's URL)")
	fs.BoolVar(&overlay, "overlay", false, "Draw the anchor audit overlay")
	fs.Var(&valueFlags, "set", "Bind a field value, key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if output == "" || tmplPath == "" {
		printUsage()
		return fmt.Errorf("render requires -o and --template")
	}

	t, err := template.ParseTemplateFile(tmplPath)
	if err != nil {
		return err
	}

	var bg *template.BackgroundImage
	switch {
	case bgPath != "":
		bg, err = template.LoadBackgroundFile(bgPath)
	case t.Background != "":
		cfg, cfgErr := config.Load()
		if cfgErr != nil {
			return cfgErr
		}
		client := api.New(api.Config{BaseURL: cfg.APIBaseURL}, nil)
		var data []byte
		data, err = client.FetchImage(context.Background(), t.Background)
		if err == nil {
			bg, err = template.DecodeBackground(data)
		}
	default:
		return fmt.Errorf("template has no background; pass --background")
	}
	if err != nil {
		return err
	}

	height, err := template.CanvasHeight(float64(bg.Width), float64(bg.Height), template.DisplayWidth)
	if err != nil {
		return err
	}

	values := map[string]string{}
	for _, kv := range valueFlags {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}
	for _, name := range template.UnboundFields(t, values) {
		fmt.Fprintf(os.Stderr, "Warning: field %q binds to no value and will show its caption\n", name)
	}

	fonts, err := template.NewFontManager(nil, nil)
	if err != nil {
		return err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, template.DisplayWidth, int(height+0.5)))
	template.NewRenderer(fonts).Render(canvas, bg.Image, t, template.RenderOptions{
		ActiveOnly:  !overlay,
		ShowAnchors: overlay,
		PreferName:  overlay,
		Values:      values,
	})

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	defer f.Close()

	if err := template.EncodePNG(f, canvas); err != nil {
		return err
	}
	fmt.Printf("Done: %s (%dx%d)\n", output, template.DisplayWidth, int(height+0.5))
	return nil
}

func runVerify(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("verify requires a certificate id")
	}
	certificateID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := api.New(api.Config{
		BaseURL:     cfg.APIBaseURL,
		Credentials: func() string { return cfg.APIToken },
	}, nil)

	cert, err := client.VerifyCertificate(context.Background(), certificateID)
	switch {
	case errors.Is(err, api.ErrCertificateRevoked):
		fmt.Println("REVOKED: this certificate has been revoked")
		os.Exit(2)
	case errors.Is(err, api.ErrCertificateNotFound):
		fmt.Println("NOT VALID: certificate is not valid")
		os.Exit(2)
	case err != nil:
		return err
	}

	fmt.Printf("VALID: %s\n", cert.CertificateID)
	fmt.Printf("  Student: %s <%s>\n", cert.StudentName, cert.StudentEmail)
	fmt.Printf("  Course:  %s (%s)\n", cert.CourseName, cert.CourseID)
	fmt.Printf("  Status:  %s\n", cert.Status)
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var out string
	fs.StringVar(&out, "template", "template.json", "Output path for the sample template")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.WriteFile(out, []byte(template.SampleTemplateJSON()), 0644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	fmt.Printf("Created: %s\n", out)
	fmt.Println("Run: certpress render -o preview.png --template " + out + " --background bg.png")
	return nil
}

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`certpress - Certificate template console

USAGE:
    certpress serve [--port 8080]
    certpress render -o <file> --template <path> [options]
    certpress verify <certificateId>
    certpress init [--template template.json]

SERVE:
    Starts the browser console. Configured via environment:
    SERVER_PORT, CERT_API_URL, CERT_API_TOKEN, CERT_UPLOAD_URL,
    CERT_FONT_HOST_URL, DEBUG.

RENDER:
    -o, --output <path>    Output PNG
    --template <path>      Template JSON (see 'certpress init')
    --background <path>    Local background image override
    --overlay              Draw anchor markers, ordinals and coordinates
    --set key=value        Bind a certificate value (repeatable)

VERIFY:
    certpress verify CERT-2023-ABCXYZ

EXAMPLES:
    certpress init
    certpress render -o out.png --template template.json --background bg.png
    certpress render -o audit.png --template template.json --background bg.png --overlay
    certpress serve --port 9000
`)
}
