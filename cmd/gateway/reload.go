package main

import (
	"fmt"

	"account-gateway/middleware/ratelimit/domain"
	"account-gateway/middleware/ratelimit/infra"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/spf13/viper"
)

// watchTiers recarrega taxa e capacidade dos tiers quando o arquivo de
// configuração muda. Sem --config não há o que observar.
func watchTiers(v *viper.Viper, store *infra.Store, log logr.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := reloadTiers(v, store, log); err != nil {
			log.Error(err, "config reload rejected, keeping current tiers", "file", e.Name)
		}
	})
	v.WatchConfig()
	log.Info("watching config file", "file", v.ConfigFileUsed())
}

// reloadTiers relê a configuração já carregada no viper e aplica os tiers no
// store. Config inválida não altera nada.
func reloadTiers(v *viper.Viper, store *infra.Store, log logr.Logger) error {
	cfg, err := readConfig(v)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	for _, tier := range []domain.Tier{domain.TierGlobal, domain.TierCommon, domain.TierHard} {
		tc := cfg.tiers()[tier]
		if !store.Update(tier, tc) {
			continue
		}
		log.Info("tier reloaded", "tier", tier, "rps", tc.RPS, "burst", tc.Burst)
	}
	return nil
}
