/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pixelbook/internal/book"
	"pixelbook/internal/config"
	"pixelbook/internal/crash"
	applog "pixelbook/internal/log"
	"pixelbook/internal/notify"
	"pixelbook/internal/storage"
	"pixelbook/internal/telemetry"
	"pixelbook/internal/textlayout"
)

// env is what every command needs after the config has been read.
type env struct {
	cfg    config.AppConfig
	secret string
	mode   textlayout.Mode
	// auto is set when the mode is left to the viewport.
	auto bool
	log  *slog.Logger
}

// setup loads the config, applies the global flags and initializes logging,
// notices and telemetry. quiet keeps log output off the terminal.
func setup(quiet bool) (*env, error) {
	cfg, secret, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if b := strings.TrimSpace(bookFlag); b != "" {
		if strings.EqualFold(cfg.Storage.Backend, "postgres") {
			cfg.Storage.Book = b
		} else {
			cfg.Storage.Path = b
		}
	}
	if lvl := strings.TrimSpace(logLevelFlag); lvl != "" {
		cfg.Logging.Level = lvl
	}
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Quiet:     quiet,
	}
	if quiet && opts.File == "" {
		if p, err := config.ConfigPath(); err == nil {
			opts.File = filepath.Join(filepath.Dir(p), "pixelbook.log")
		}
	}
	applog.Init(opts)
	notify.SetDisabled(cfg.General.DisableNotifications)
	telemetry.SetDefault(telemetry.FromConfig(cfg))

	mode, auto, err := resolveMode(cfg.General.Mode)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, secret: secret, mode: mode, auto: auto, log: applog.WithComponent("cli")}, nil
}

// resolveMode picks the layout mode from --mode or the config. auto reports
// desktop and leaves the final choice to surfaces that know their viewport.
func resolveMode(configured string) (textlayout.Mode, bool, error) {
	name := strings.TrimSpace(modeFlag)
	if name == "" {
		name = strings.TrimSpace(configured)
	}
	if name == "" || strings.EqualFold(name, "auto") {
		return textlayout.ModeDesktop, true, nil
	}
	m, err := textlayout.ParseMode(name)
	if err != nil {
		return "", false, err
	}
	return m, false, nil
}

// openStore opens the configured persistence backend.
func (e *env) openStore(ctx context.Context) (storage.Store, error) {
	st, err := storage.Open(ctx, e.cfg, e.secret)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return st, nil
}

// openSession opens the book. The returned func flushes and closes it.
func (e *env) openSession(ctx context.Context) (*book.Session, func() error, error) {
	st, err := e.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	sess := book.Open(ctx, e.mode, st)
	closeFn := func() error {
		cctx := context.WithoutCancel(ctx)
		err := sess.Close(cctx)
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
		telemetry.Default().Flush(cctx)
		return err
	}
	return sess, closeFn, nil
}

// withSession runs fn against the opened book and closes it afterwards. A
// panic inside fn still autosaves the pages.
func withSession(cmd *cobra.Command, quiet bool, fn func(ctx context.Context, e *env, sess *book.Session) error) (err error) {
	e, err := setup(quiet)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, closeFn, err := e.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	defer crash.Recover(e.crashTarget(sess))
	return fn(sess.LogContext(ctx), e, sess)
}

// crashDir sits next to the book so a crash autosave is easy to find.
func (e *env) crashDir() string {
	p, err := e.cfg.ResolvedStoragePath()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(p), "crash")
}

func (e *env) crashTarget(sess *book.Session) *crash.Target {
	t := &crash.Target{Dir: e.crashDir()}
	if sess != nil {
		t.Pages = sess.Pages
	}
	return t
}

// userPage converts a 1-based page number from the command line.
func userPage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > book.MaxPages {
		return 0, fmt.Errorf("page must be a number from 1 to %d, got %q", book.MaxPages, s)
	}
	return n - 1, nil
}
