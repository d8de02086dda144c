package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"turnstile/internal/modproxy"
	"turnstile/internal/store"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "deps",
		Description: "verify every direct dependency exists and has history on the module proxy",
		Blocking:    true,
		Run:         runDeps,
	})
}

type depExemption struct {
	Path          string `json:"path"`
	Justification string `json:"justification"`
}

func loadDepExemptions(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read exemptions %s: %w", path, err)
	}
	var entries []depExemption
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse exemptions %s: %w", path, err)
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.Path] = true
	}
	return out, nil
}

func trustedPrefix(path string, trusted []string) bool {
	for _, prefix := range trusted {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func runDeps(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Deps
	rep := verdict.NewReport("deps")
	log := env.Log("deps")

	requires, err := directRequires(env.Root)
	if err != nil {
		if missingGoMod(err) {
			rep.Notef("no go.mod found, nothing to check")
			return rep, nil
		}
		return nil, err
	}
	if len(requires) == 0 {
		rep.Notef("no direct dependencies")
		return rep, nil
	}

	exemptPath := cfg.ExemptionsFile
	if exemptPath != "" && !filepath.IsAbs(exemptPath) {
		exemptPath = filepath.Join(env.Root, exemptPath)
	}
	exempt, err := loadDepExemptions(exemptPath)
	if err != nil {
		return nil, err
	}

	var client *modproxy.Client
	if !env.Offline {
		client, err = modproxy.New(cfg.ProxyURL,
			modproxy.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
			modproxy.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
	}
	ttl := time.Duration(cfg.CacheTTLHours) * time.Hour

	var checked, fromCache int
	for _, req := range requires {
		switch {
		case trustedPrefix(req.Path, cfg.Trusted):
			continue
		case exempt[req.Path]:
			rep.Notef("%s exempted", req.Path)
			continue
		}
		checked++

		var fact *store.ModuleFact
		if env.DB != nil {
			fact, err = env.DB.CachedModule(req.Path, ttl)
			if err != nil {
				return nil, err
			}
			if fact != nil {
				fromCache++
			}
		}
		if fact == nil {
			if env.Offline || client == nil {
				rep.Warnf("go.mod", req.Line, "lookup-skipped",
					"%s not verified (offline), treating as trusted", req.Path)
				continue
			}
			looked, lerr := client.Lookup(ctx, req.Path)
			if lerr != nil {
				log.Warn("proxy lookup failed", "module", req.Path, "error", lerr)
				rep.Warnf("go.mod", req.Line, "lookup-failed",
					"%s not verified (%v), treating as trusted", req.Path, lerr)
				continue
			}
			fact = &store.ModuleFact{Path: req.Path, Exists: looked.Exists, AgeDays: looked.AgeDays}
			if env.DB != nil {
				if perr := env.DB.PutModule(*fact); perr != nil {
					return nil, perr
				}
			}
		}

		switch {
		case !fact.Exists:
			rep.Blockf("go.mod", req.Line, "unknown-module",
				"%s is not known to the module proxy", req.Path)
		case fact.AgeDays < cfg.MinAgeDays:
			rep.Blockf("go.mod", req.Line, "too-new",
				"%s first released %d day(s) ago, minimum is %d",
				req.Path, fact.AgeDays, cfg.MinAgeDays)
		}
	}
	rep.Notef("%d module(s) verified, %d from cache", checked, fromCache)
	return rep, nil
}
