package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lutefd/fairplay-api/internal/config"
	"github.com/lutefd/fairplay-api/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding *.up.sql files")
	down := flag.Bool("down", false, "apply *.down.sql files in reverse order")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	suffix := ".up.sql"
	if *down {
		suffix = ".down.sql"
	}
	files, err := listMigrations(*dir, suffix)
	if err != nil {
		log.Fatal().Err(err).Msg("list migrations")
	}
	if *down {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("read migration")
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("apply migration")
		}
		log.Info().Str("file", file).Msg("applied migration")
	}
}

func listMigrations(root, suffix string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
