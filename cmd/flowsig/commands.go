package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/hupe1980/flowsig"
	"github.com/hupe1980/flowsig/artifact"
	"github.com/hupe1980/flowsig/internal/tabular"
	"github.com/hupe1980/flowsig/registry"
	"github.com/urfave/cli/v2"
)

var errNoData = errors.New("provide --train-data and/or --test-data")

var (
	trainAction = withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		return s.train(ctx, c.String("train-data"))
	})

	testAction = withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		return s.test(ctx, c.String("test-data"))
	})

	runAction = withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		trainPath, testPath := c.String("train-data"), c.String("test-data")
		if trainPath == "" && testPath == "" {
			return errNoData
		}
		if trainPath != "" {
			if err := s.train(ctx, trainPath); err != nil {
				return err
			}
		}
		if testPath != "" {
			return s.test(ctx, testPath)
		}
		return nil
	})

	inspectAction = withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		name := s.sigset
		if c.Args().Present() {
			name = c.Args().First()
		}
		return s.inspect(ctx, c, name)
	})
)

func (s *session) readMatrix(path string) (flowsig.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("data file not found: %s", path)
		}
		return nil, err
	}
	defer f.Close()

	s.logger.Info("loading data", "path", path)
	names, x, err := tabular.ReadCSV(bufio.NewReader(f), tabular.Options{
		Select: s.cfg.Columns.Select,
		Drop:   s.cfg.Columns.Drop,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.logger.Info("loaded data", "path", path, "rows", len(x), "cols", len(names))
	return x, nil
}

func (s *session) train(ctx context.Context, path string) error {
	x, err := s.readMatrix(path)
	if err != nil {
		return err
	}

	m, err := flowsig.New(s.cfg.Base, s.modelOptions()...)
	if err != nil {
		return err
	}

	if _, err := m.Fit(ctx, x); err != nil {
		return err
	}

	info, err := flowsig.SaveModel(ctx, s.store, s.sigset, m)
	if err != nil {
		return err
	}

	if s.registry == nil {
		return nil
	}

	committed, err := s.registry.Commit(ctx, registry.FromInfo(info, m.Base(), m.Features()))
	if err != nil {
		return fmt.Errorf("commit manifest: %w", err)
	}
	s.logger.Info("committed manifest",
		"version", committed.Version,
		"artifact", committed.Artifact,
		"signatures", committed.Signatures,
	)
	return nil
}

func (s *session) test(ctx context.Context, path string) error {
	m, err := flowsig.New(s.cfg.Base, s.modelOptions()...)
	if err != nil {
		return err
	}

	if err := s.loadModel(ctx, m); err != nil {
		return err
	}

	x, err := s.readMatrix(path)
	if err != nil {
		return err
	}

	verdicts, _, err := m.Predict(ctx, x)
	if err != nil {
		return err
	}

	return s.writePredictions(verdicts)
}

// loadModel loads the signature set into m. With a registry the latest
// manifest selects the artifact, and its base and checksum are verified.
func (s *session) loadModel(ctx context.Context, m *flowsig.Model) error {
	if s.registry == nil {
		return m.Load(ctx, s.store, s.sigset)
	}

	man, err := s.registry.Latest(ctx)
	if err != nil {
		return err
	}
	if err := man.CheckBase(m.Base()); err != nil {
		return err
	}

	if err := m.LoadVerified(ctx, s.store, man.Artifact, man.CheckArtifact); err != nil {
		return err
	}
	if man.Features > 0 {
		return m.SetFeatures(man.Features)
	}
	return nil
}

func (s *session) writePredictions(verdicts []flowsig.Verdict) error {
	path := s.cfg.Result
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := tabular.WritePredictions(w, verdicts); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	s.logger.Info("saved predictions", "path", path, "rows", len(verdicts))
	return nil
}

func (s *session) inspect(ctx context.Context, c *cli.Context, name string) error {
	info, err := artifact.NewStore(s.store, artifact.WithController(s.controller)).Inspect(ctx, name)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "name:\t%s\n", info.Name)
	fmt.Fprintf(tw, "format:\t%s\n", info.Layout)
	fmt.Fprintf(tw, "size:\t%d\n", info.Size)
	fmt.Fprintf(tw, "crc32c:\t%08x\n", info.Checksum)
	fmt.Fprintf(tw, "signatures:\t%d\n", info.Signatures)
	if info.Signatures > 0 {
		fmt.Fprintf(tw, "min:\t%d\n", info.Min)
		fmt.Fprintf(tw, "max:\t%d\n", info.Max)
	}

	if s.registry != nil {
		man, err := s.registry.Latest(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(tw, "manifest:\tv%d %s base=%v features=%d\n", man.Version, man.Artifact, man.Base, man.Features)
		case errors.Is(err, registry.ErrNoManifest):
			fmt.Fprintf(tw, "manifest:\tnone\n")
		default:
			return err
		}
	}
	return tw.Flush()
}
