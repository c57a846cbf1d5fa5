package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"medprofile/cache"
	"medprofile/db"
	"medprofile/model"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，并对用户身份缓存进行一次写入、读取和清除。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始测试Redis连接...")

		cfg := loadConfig()
		fmt.Printf("Redis配置: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		client, err := db.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("无法连接到Redis: %v", err)
		}
		defer client.Close()
		fmt.Println("Redis连接成功！")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		userCache := cache.NewUserCache(client)
		probe := model.NewUser("redis-probe", "redis-probe", "", "", model.PersonalData{})

		fmt.Println("开始测试用户缓存读写...")
		if err := userCache.Set(ctx, probe); err != nil {
			log.Fatalf("写入缓存失败: %v", err)
		}
		got, err := userCache.Get(ctx, probe.ID)
		if err != nil || got == nil || got.Username != probe.Username {
			log.Fatalf("读取缓存失败: %v", err)
		}
		if err := userCache.Invalidate(ctx, probe.ID); err != nil {
			log.Fatalf("清除缓存失败: %v", err)
		}
		fmt.Println("Redis测试完成。")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
