// Command shipdeck-cli runs a single deployment from a deployment.yaml,
// either directly on this machine or by posting to a shipdeck server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/descriptor"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/envfile"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/gitcli"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/httpin"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/perms"
	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/treediff"
	"github.com/nathantilsley/shipdeck/internal/deploy/app"
	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
	"github.com/nathantilsley/shipdeck/internal/platform/logger"
	"github.com/nathantilsley/shipdeck/internal/platform/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		file      = flag.String("f", descriptor.DefaultPath, "Path to the deployment descriptor")
		serverURL = flag.String("server", "", "Deploy through a shipdeck server instead of locally (e.g. http://localhost:9000)")
		secret    = flag.String("secret", "", "Secret for signing server requests (read from DEPLOY_WEBHOOK_SECRET env var if not set)")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	desc, err := descriptor.Load(*file)
	if err != nil {
		return err
	}

	if *serverURL != "" {
		if *secret == "" {
			*secret = os.Getenv("DEPLOY_WEBHOOK_SECRET")
		}
		return runRemote(*serverURL, *secret, desc)
	}

	return runLocal(*logLevel, desc)
}

// runLocal builds the deploy pipeline in-process and runs it once.
func runLocal(logLevel string, desc domain.Descriptor) error {
	ctx := context.Background()
	log := logger.New(logLevel)

	tel, err := telemetry.New(ctx, false)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	service, err := app.NewDeployService(
		gitcli.New(log),
		nil, // no GitHub App credentials in one-shot mode, fetch through git
		envfile.New(),
		perms.New(log),
		treediff.New(),
		log,
		tel.Tracer,
		tel.Meter,
	)
	if err != nil {
		return fmt.Errorf("creating deploy service: %w", err)
	}

	rep, execErr := service.Execute(ctx, desc)
	printReport(rep)
	return execErr
}

// runRemote posts the descriptor to a shipdeck server's deploy endpoint.
func runRemote(serverURL, secret string, desc domain.Descriptor) error {
	payload, err := json.Marshal(httpin.DeployRequest{
		Username:   username(),
		RepoURL:    desc.RepoURL,
		Branch:     desc.Branch,
		CommitHash: desc.CommitHash,
		LocalDir:   desc.LocalDir,
		ExcludeExt: httpin.ExtList(desc.ExcludeExt),
		Env:        desc.Env,
		ReadOnly:   desc.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	url := strings.TrimSuffix(serverURL, "/") + "/deploy"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(httpin.SignatureHeader, httpin.Sign(payload, secret))
	}

	fmt.Printf("Deploying %s @ %s via %s...\n", desc.RepoURL, desc.Ref(), url)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var rep domain.Report
	if jsonErr := json.Unmarshal(body, &rep); jsonErr == nil {
		printReport(rep)
	} else if len(body) > 0 {
		fmt.Printf("Response: %s\n", strings.TrimSpace(string(body)))
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

func printReport(rep domain.Report) {
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", rep)
		return
	}
	fmt.Println(string(out))
}

// username identifies who triggered the deploy in the server's logs.
func username() string {
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
