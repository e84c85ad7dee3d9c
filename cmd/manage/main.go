// Команда manage - служебные операции: миграции, пользователи, токены, обслуживание каталога.
//
//	manage migrate
//	manage create-user -username admin -password secret -phone +998901234567 -staff
//	manage create-api-token -username bot -ttl 8760h
//	manage fix-slugs
//	manage compress-images
//	manage seed -categories 5 -items 10
//	manage import-json -file descriptions.json
//	manage create-items-from-images -dir ./pod_tv -category "Под ТВ" -prefix pod_tv
//	manage db-stats [-optimize]
//	manage cleanup-audit -days 180
//	manage check-bot
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gos_landing/config"
	"gos_landing/database"
	"gos_landing/logger"
	"gos_landing/services"
	"gos_landing/telegram"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

var commands = []command{
	{"migrate", "создать базу (PostgreSQL), выполнить автомиграцию и создать индексы", runMigrate},
	{"create-user", "создать пользователя", runCreateUser},
	{"create-api-token", "выпустить токен для /api/location-stats/", runCreateAPIToken},
	{"fix-slugs", "заполнить пустые и повторяющиеся слаги каталога", runFixSlugs},
	{"compress-images", "пересжать изображения каталога", runCompressImages},
	{"seed", "заполнить базу демонстрационными данными", runSeed},
	{"import-json", "обновить названия и описания товаров из JSON", runImportJSON},
	{"create-items-from-images", "создать товары категории из директории с изображениями", runCreateItemsFromImages},
	{"db-stats", "показать количество строк в таблицах", runDBStats},
	{"cleanup-audit", "удалить старые записи журнала действий", runCleanupAudit},
	{"check-bot", "проверить настройки Telegram бота и API статистики", runCheckBot},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == os.Args[1] {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Ошибка конфигурации: ", err)
	}
	zlog, err := logger.Init(cfg.Logging)
	if err != nil {
		log.Fatal("❌ Ошибка инициализации логгера: ", err)
	}
	defer func() { _ = zlog.Sync() }()

	a := &app{cfg: cfg, logger: zlog}
	if cmd.name != "check-bot" {
		if cmd.name == "migrate" {
			if err := database.CreateDatabaseIfNotExists(cfg); err != nil {
				zlog.Fatal("failed to create database", zap.Error(err))
			}
		}
		if a.db, err = database.ConnectDatabase(cfg); err != nil {
			zlog.Fatal("failed to connect database", zap.Error(err))
		}
	}

	if err := cmd.run(context.Background(), a, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s: %v\n", cmd.name, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Использование: manage <команда> [флаги]")
	fmt.Fprintln(os.Stderr, "\nКоманды:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-26s %s\n", c.name, c.usage)
	}
}

func runMigrate(_ context.Context, a *app, _ []string) error {
	// ConnectDatabase уже выполнил автомиграцию
	if err := database.CreatePerformanceIndexes(a.db); err != nil {
		return err
	}
	fmt.Println("✅ Миграции выполнены")
	return nil
}

func runCreateUser(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	username := fs.String("username", "", "имя пользователя")
	password := fs.String("password", "", "пароль")
	phone := fs.String("phone", "", "номер телефона для привязки Telegram")
	firstName := fs.String("first-name", "", "имя")
	staff := fs.Bool("staff", false, "сотрудник (доступ к админке и /allstats через API)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := services.NewUserService(a.db).CreateUser(ctx, services.CreateUserParams{
		Username:    *username,
		Password:    *password,
		PhoneNumber: *phone,
		FirstName:   *firstName,
		IsStaff:     *staff,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✅ Пользователь %s создан (id=%d)\n", user.Username, user.ID)
	return nil
}

func runCreateAPIToken(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-api-token", flag.ExitOnError)
	username := fs.String("username", "", "пользователь, от имени которого выпускается токен")
	ttl := fs.Duration("ttl", 0, "срок действия; 0 - JWT_EXPIRES_IN, отрицательный - бессрочный")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("укажите -username")
	}

	user, err := services.NewUserService(a.db).GetByUsername(ctx, *username)
	if err != nil {
		return err
	}
	if !user.IsStaff {
		fmt.Fprintln(os.Stderr, "⚠️  Пользователь не сотрудник: токен даст доступ только к его локациям")
	}

	tokens := services.NewTokenService(a.cfg.JWT.Secret, a.cfg.JWT.Issuer, a.cfg.JWT.ExpiresIn)
	token, err := tokens.Issue(user, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runFixSlugs(ctx context.Context, a *app, _ []string) error {
	fixed, err := services.NewCatalogService(a.db).FixSlugs(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Исправлено слагов: %d\n", fixed)
	return nil
}

func runCompressImages(ctx context.Context, a *app, _ []string) error {
	images := services.NewImageService(a.cfg.Media.Root, a.cfg.Security.MaxUploadSize)
	result, err := services.NewMaintenanceService(a.db, images, a.logger).RecompressImages(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Обработано: %d, ошибок: %d\n", result.Processed, result.Failed)
	return nil
}

func runSeed(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	categories := fs.Int("categories", 5, "количество категорий")
	items := fs.Int("items", 10, "товаров в категории")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := services.NewMaintenanceService(a.db, nil, a.logger).SeedDemoData(ctx, *categories, *items); err != nil {
		return err
	}
	fmt.Println("✅ Демонстрационные данные созданы")
	return nil
}

func runImportJSON(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import-json", flag.ExitOnError)
	file := fs.String("file", "", "путь к JSON файлу")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("укажите -file")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var data map[string][]services.ImportEntry
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("некорректный JSON: %w", err)
	}

	result, err := services.NewCatalogService(a.db).ImportDescriptions(ctx, data)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Обновлено товаров: %d\n", result.Updated)
	for _, missing := range result.Missing {
		fmt.Printf("⚠️  Не найдено: %s\n", missing)
	}
	return nil
}

func runCreateItemsFromImages(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-items-from-images", flag.ExitOnError)
	dir := fs.String("dir", "", "директория с изображениями (.jpg, .jpeg, .png, .gif)")
	category := fs.String("category", "", "название существующей категории")
	prefix := fs.String("prefix", "item", "префикс названий товаров")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" || *category == "" {
		return errors.New("укажите -dir и -category")
	}

	images := services.NewImageService(a.cfg.Media.Root, a.cfg.Security.MaxUploadSize)
	result, err := services.NewMaintenanceService(a.db, images, a.logger).CreateItemsFromImages(ctx, *dir, *category, *prefix)
	if err != nil {
		return err
	}
	for _, name := range result.Created {
		fmt.Printf("✅ Создан товар %s\n", name)
	}
	for _, file := range result.Failed {
		fmt.Printf("⚠️  Не удалось обработать %s\n", file)
	}
	fmt.Printf("✅ Создано товаров: %d\n", len(result.Created))
	return nil
}

func runDBStats(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("db-stats", flag.ExitOnError)
	optimize := fs.Bool("optimize", false, "выполнить ANALYZE и VACUUM")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *optimize {
		if err := database.OptimizeDatabase(a.db); err != nil {
			return err
		}
		fmt.Println("✅ Оптимизация выполнена")
	}

	stats, err := database.GetTableStats(a.db)
	if err != nil {
		return err
	}
	for _, s := range stats {
		fmt.Printf("%-22s %d\n", s.Table, s.Rows)
	}
	return nil
}

func runCleanupAudit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("cleanup-audit", flag.ExitOnError)
	days := fs.Int("days", 180, "срок хранения записей в днях")
	if err := fs.Parse(args); err != nil {
		return err
	}

	deleted, err := services.NewAuditService(a.db, a.logger).CleanupOldLogs(ctx, *days)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Удалено записей журнала: %d\n", deleted)
	return nil
}

func runCheckBot(ctx context.Context, a *app, _ []string) error {
	cfg := a.cfg
	fmt.Printf("TELEGRAM_BOT_TOKEN: %s\n", presence(cfg.Bot.Token))
	fmt.Printf("API_TOKEN:          %s\n", presence(cfg.Bot.APIToken))
	fmt.Printf("SITE_URL:           %s\n", cfg.App.SiteURL)
	fmt.Printf("BOT_STATS_SOURCE:   %s\n", cfg.Bot.StatsSource)

	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	api, err := telegram.NewBotAPI(cfg.Bot.Token, false)
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	fmt.Printf("✅ Бот авторизован: @%s\n", api.Self.UserName)

	if cfg.App.SiteURL == "" || cfg.Bot.APIToken == "" {
		fmt.Println("⚠️  API статистики не проверялся: нужны SITE_URL и API_TOKEN")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Bot.StatsTimeout+time.Second)
	defer cancel()
	provider := telegram.NewAPIProvider(cfg.App.SiteURL, cfg.Bot.APIToken, cfg.Bot.StatsTimeout)
	summary, err := provider.Summary(ctx, services.Today(), services.AdminScope())
	if err != nil {
		return fmt.Errorf("API статистики: %w", err)
	}
	fmt.Printf("✅ API статистики отвечает: локаций %d, сканирований сегодня %d\n", len(summary.Rows), summary.TotalScans)
	return nil
}

func presence(value string) string {
	if value == "" {
		return "не задан"
	}
	return "задан"
}
