package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/rpc"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/annel0/mmo-worldgen/internal/worldservice"
)

func main() {
	var (
		command    = flag.String("cmd", "generate", "Команда: generate, level, camp, validate")
		seed       = flag.Int64("seed", 42, "Seed мира")
		level      = flag.Int("level", 13, "Уровень для команды level")
		camp       = flag.Int("camp", 1, "Порядковый номер лагеря для команды camp")
		serverAddr = flag.String("server", "", "Адрес gRPC сервера, пустой адрес включает локальную генерацию")
		configPath = flag.String("config", "", "YAML конфигурация генератора (локальный режим)")
		timeout    = flag.Duration("timeout", 30*time.Second, "Таймаут запроса к серверу")
		compact    = flag.Bool("compact", false, "Вывод JSON без отступов")
	)
	flag.Parse()

	logging.SetDefaultLogger(logging.NewWriterLogger("cli", os.Stderr, logging.WARN))

	var src source
	if *serverAddr != "" {
		client, err := rpc.Dial(*serverAddr)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer client.Close()
		src = &remoteSource{client: client, timeout: *timeout}
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		local, err := newLocalSource(cfg.Generator)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		src = local
	}

	var out interface{}
	var err error
	switch *command {
	case "generate":
		out, err = src.Template(*seed)
	case "level":
		out, err = src.Level(*seed, *level)
	case "camp":
		out, err = src.Camp(*seed, *camp)
	case "validate":
		err = validate(src, *seed)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: generate, level, camp, validate")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
	if out != nil {
		if err := printJSON(out, *compact); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}
}

// source определяет, откуда брать шаблоны: локальный генератор или сервер
type source interface {
	Template(seed int64) (*worldgen.WorldTemplate, error)
	Level(seed int64, level int) (worldgen.LevelView, error)
	Camp(seed int64, ordinal int) (worldgen.CampView, error)
}

type localSource struct {
	generator *worldgen.Generator
	base      []worldgen.Feature
}

func newLocalSource(cfg config.GeneratorConfig) (*localSource, error) {
	base, err := worldservice.BaseFeatures(cfg.BaseFeatures)
	if err != nil {
		return nil, err
	}
	return &localSource{generator: worldservice.NewGenerator(cfg, nil), base: base}, nil
}

func (l *localSource) Template(seed int64) (*worldgen.WorldTemplate, error) {
	tpl := worldgen.NewWorldTemplate(seed, l.base)
	if err := l.generator.PrepareWorld(seed, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (l *localSource) Level(seed int64, level int) (worldgen.LevelView, error) {
	tpl, err := l.Template(seed)
	if err != nil {
		return worldgen.LevelView{}, err
	}
	return tpl.LevelView(level)
}

func (l *localSource) Camp(seed int64, ordinal int) (worldgen.CampView, error) {
	tpl, err := l.Template(seed)
	if err != nil {
		return worldgen.CampView{}, err
	}
	return tpl.CampView(ordinal)
}

type remoteSource struct {
	client  *rpc.Client
	timeout time.Duration
}

func (r *remoteSource) Template(seed int64) (*worldgen.WorldTemplate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.GetTemplate(ctx, seed)
}

func (r *remoteSource) Level(seed int64, level int) (worldgen.LevelView, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.GetLevel(ctx, seed, level)
}

func (r *remoteSource) Camp(seed int64, ordinal int) (worldgen.CampView, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.GetCamp(ctx, seed, ordinal)
}

// validate проверяет структурные инварианты шаблона и печатает сводку
func validate(src source, seed int64) error {
	tpl, err := src.Template(seed)
	if err != nil {
		return err
	}
	if err := tpl.Validate(); err != nil {
		return err
	}

	camps := 0
	for _, positions := range tpl.CampPositions {
		camps += len(positions)
	}
	districts := 0
	for _, list := range tpl.Districts {
		districts += len(list)
	}
	fmt.Printf("✅ seed=%d: особенностей %d, этапов %d, лагерей %d, районов %d\n",
		seed, len(tpl.Features), len(tpl.Stages), camps, districts)
	return nil
}

func printJSON(v interface{}, compact bool) error {
	enc := json.NewEncoder(os.Stdout)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
