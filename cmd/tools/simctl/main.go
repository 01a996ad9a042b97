// simctl - утилита оператора: воспроизведение снапшотов, генерация и загрузка
// миров, просмотр доменных событий в JetStream.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/eventbus"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/snapshot"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/storage"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldgen"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

const usage = `simctl <command> [flags]

Команды:
  snapshot  воспроизвести популяцию мира из YAML на серии моментов времени
  gen       сгенерировать демо-мир в каталог YAML
  seed      загрузить мир из YAML-каталога в MongoDB
  tail      следить за доменными событиями в JetStream`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "snapshot":
		err = runSnapshot(os.Args[2:])
	case "gen":
		err = runGen(os.Args[2:])
	case "seed":
		err = runSeed(os.Args[2:])
	case "tail":
		err = runTail(os.Args[2:])
	default:
		fmt.Printf("❌ Unknown command: %s\n\n%s\n", os.Args[1], usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s: %v", os.Args[1], err)
	}
}

func runSnapshot(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dir := fs.String("dir", "worlds", "Каталог YAML-миров")
	world := fs.String("world", "", "Идентификатор мира")
	from := fs.Int64("from", 0, "Первый момент (мс), 0 = сейчас")
	step := fs.Duration("step", time.Second, "Шаг между снапшотами")
	count := fs.Int("count", 5, "Количество снапшотов")
	asJSON := fs.Bool("json", false, "Вывод в JSON")
	_ = fs.Parse(args)

	if *world == "" {
		return fmt.Errorf("не указан -world")
	}
	src, err := worldsrc.NewYAMLDirSource(*dir)
	if err != nil {
		return err
	}
	svc := snapshot.NewService(src, snapshot.Options{Store: storage.NewMemoryRegistryStore()})

	now := *from
	if now == 0 {
		now = time.Now().UnixMilli()
	}
	ctx := context.Background()
	for i := 0; i < *count; i++ {
		at := now + int64(i)*step.Milliseconds()
		creatures, err := svc.GetSnapshot(ctx, *world, at)
		if err != nil {
			return err
		}

		if *asJSON {
			data, err := json.Marshal(map[string]interface{}{"now": at, "creatures": creatures})
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			continue
		}

		fmt.Printf("⏱️  t=%d\n", at)
		for _, c := range creatures {
			state := "spawned"
			if !c.Spawned {
				state = "absent"
			}
			fmt.Printf("  %-24s (%3d,%3d) facing=%+d %s\n", c.ID, c.TileX, c.TileY, c.Facing, state)
		}
	}
	return nil
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	dir := fs.String("dir", "worlds", "Каталог YAML-миров")
	world := fs.String("world", "demo", "Идентификатор мира")
	seed := fs.Int64("seed", 42, "Сид генератора")
	cols := fs.Int("cols", 48, "Ширина в тайлах")
	rows := fs.Int("rows", 24, "Высота в тайлах")
	_ = fs.Parse(args)

	doc, err := worldgen.NewGenerator(*seed, *cols, *rows).Generate(*world, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*dir, 0755); err != nil {
		return err
	}
	path, err := worldsrc.WriteDocument(*dir, doc)
	if err != nil {
		return err
	}
	fmt.Printf("🗺️  Мир %s записан в %s\n", doc.ID, path)
	return nil
}

func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	dir := fs.String("dir", "worlds", "Каталог YAML-миров")
	world := fs.String("world", "", "Идентификатор мира (пусто = все миры каталога)")
	uri := fs.String("mongo", "mongodb://localhost:27017", "MongoDB URI")
	database := fs.String("db", "anima", "База данных")
	collection := fs.String("collection", "worlds", "Коллекция")
	_ = fs.Parse(args)

	src, err := worldsrc.NewYAMLDirSource(*dir)
	if err != nil {
		return err
	}
	ids := []string{*world}
	if *world == "" {
		if ids, err = src.Worlds(); err != nil {
			return err
		}
	}

	dst, err := worldsrc.NewMongoSource(worldsrc.MongoConfig{URI: *uri, Database: *database, Collection: *collection})
	if err != nil {
		return err
	}
	defer dst.Close()

	ctx := context.Background()
	for _, id := range ids {
		doc, err := src.Document(id)
		if err != nil {
			return err
		}
		if err := dst.Put(ctx, doc); err != nil {
			return err
		}
		fmt.Printf("🍃 Мир %s (v%d) загружен в MongoDB\n", doc.ID, doc.Version)
	}
	return nil
}

func runTail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	url := fs.String("url", "nats://127.0.0.1:4222", "NATS URL")
	stream := fs.String("stream", "EVENTS", "JetStream stream")
	types := fs.String("types", "", "Фильтр типов событий (через запятую)")
	sources := fs.String("sources", "", "Фильтр источников (через запятую)")
	limit := fs.Int("limit", 0, "Остановиться после N событий (0 = без лимита)")
	_ = fs.Parse(args)

	bus, err := eventbus.NewJetStreamBus(*url, *stream, 24*time.Hour)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	received := make(chan struct{}, 64)
	sub, err := bus.Subscribe(ctx, eventbus.Filter{
		Types:   parseStringList(*types),
		Sources: parseStringList(*sources),
	}, func(ctx context.Context, ev *eventbus.Envelope) {
		printEvent(ev)
		select {
		case received <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Printf("🎬 Tailing %s on %s\n", *stream, *url)
	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", count)
			return nil
		case <-received:
			count++
			if *limit > 0 && count >= *limit {
				fmt.Printf("\n📊 Total events: %d\n", count)
				return nil
			}
		}
	}
}

func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n", ev.Timestamp.Format("15:04:05"), ev.Source, ev.EventType, ev.ID)
	if len(ev.Payload) > 0 {
		fmt.Printf("  %s\n", string(ev.Payload))
	}
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
