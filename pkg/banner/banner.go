package banner

import (
	"fmt"

	"quietpost/pkg/config"
)

const banner = `
 ██████╗ ██╗   ██╗██╗███████╗████████╗██████╗  ██████╗ ███████╗████████╗
██╔═══██╗██║   ██║██║██╔════╝╚══██╔══╝██╔══██╗██╔═══██╗██╔════╝╚══██╔══╝
██║   ██║██║   ██║██║█████╗     ██║   ██████╔╝██║   ██║███████╗   ██║
██║▄▄ ██║██║   ██║██║██╔══╝     ██║   ██╔═══╝ ██║   ██║╚════██║   ██║
╚██████╔╝╚██████╔╝██║███████╗   ██║   ██║     ╚██████╔╝███████║   ██║
 ╚══▀▀═╝  ╚═════╝ ╚═╝╚══════╝   ╚═╝   ╚═╝      ╚═════╝ ╚══════╝   ╚═╝
`

// Print writes the startup banner with the effective runtime settings
// and a short production checklist.
func Print(cfg *config.Config, addr, source, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", addr)
	fmt.Printf("Backend:   %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == "s3" {
		fmt.Printf("Bucket:    %s\n", cfg.Storage.S3.Bucket)
	} else {
		fmt.Printf("DB Path:   %s\n", cfg.Storage.DBPath)
	}
	fmt.Printf("Blob:      %s\n", cfg.Storage.BlobName)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	if source != "" {
		fmt.Printf("Config:    %s\n", source)
	}

	fmt.Println("\n== Production? =================================================")
	if cfg.Security.Secret == config.DefaultSecret {
		fmt.Println("- Secret: DEFAULT (set security.secret or QUIETPOST_SECRET before deploying)")
	} else {
		fmt.Println("- Secret: configured")
	}
	if len(cfg.Principals) > 0 {
		fmt.Printf("- Principals: OK (%d)\n", len(cfg.Principals))
	} else {
		fmt.Println("- Principals: MISSING (nobody can log in)")
	}
	if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured (session cookie requires secure transport)")
	}
	if cfg.Notify.WebhookURL != "" {
		fmt.Println("- Webhook: configured")
	} else {
		fmt.Println("- Webhook: disabled")
	}
}
