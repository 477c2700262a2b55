// Copyright 2024 savor Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base/log"
	"github.com/savor-io/savor/config"
	"github.com/savor-io/savor/dataset"
	"github.com/savor-io/savor/model"
	"github.com/savor-io/savor/recommend"
	"github.com/savor-io/savor/storage/cache"
	"github.com/savor-io/savor/storage/data"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "savor",
	Short: "Restaurant recommendation engine",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Root().PersistentFlags(), debug)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of savor",
	Run: func(*cobra.Command, []string) {
		fmt.Println(version)
	},
}

var trainCmd = &cobra.Command{
	Use:       "train [als|sgd|svd|ensemble]",
	Short:     "Train a model and write its snapshot",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"als", "sgd", "svd", "ensemble"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		region, _ := cmd.Flags().GetString("region")
		ratings, err := loadRatings(cmd, cfg, region)
		if err != nil {
			return errors.Trace(err)
		}
		trainSet := dataset.New(ratings,
			dataset.WithRegion(region),
			dataset.WithMinUserRatings(cfg.Recommend.EligibilityThreshold))
		params := model.Params{}
		if cmd.Flags().Changed("factors") {
			factors, _ := cmd.Flags().GetInt("factors")
			params[model.NFactors] = factors
		}
		if cmd.Flags().Changed("epochs") {
			epochs, _ := cmd.Flags().GetInt("epochs")
			params[model.NEpochs] = epochs
		}
		if cmd.Flags().Changed("lr") {
			lr, _ := cmd.Flags().GetFloat64("lr")
			params[model.Lr] = lr
			params[model.AdaptiveLr] = false
		}
		if cmd.Flags().Changed("reg") {
			reg, _ := cmd.Flags().GetFloat64("reg")
			for _, name := range []model.ParamName{
				model.UserReg, model.ItemReg,
				model.UserBiasReg, model.ItemBiasReg,
				model.UserFactorReg, model.ItemFactorReg,
			} {
				params[name] = reg
			}
		}
		var m model.Recommender
		switch args[0] {
		case "als":
			m = model.NewALS(params)
		case "sgd":
			m = model.NewSGD(params)
		case "svd":
			m = model.NewSVD(params)
		case "ensemble":
			if m, err = model.NewEnsemble(map[string]model.Recommender{
				"als": model.NewALS(params),
				"sgd": model.NewSGD(params),
				"svd": model.NewSVD(params),
			}, params); err != nil {
				return errors.Trace(err)
			}
		}
		if err := m.Fit(cmd.Context(), trainSet, model.NewFitConfig()); err != nil {
			return errors.Trace(err)
		}
		path := recommend.SnapshotPath(cfg.Recommend.SnapshotDir, args[0], region)
		if err := model.Save(path, m); err != nil {
			return errors.Trace(err)
		}
		log.Logger().Info("snapshot saved", zap.String("path", path))
		return nil
	},
}

var precacheCmd = &cobra.Command{
	Use:   "precache",
	Short: "Fill the personalized cache of every eligible user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, service, closeStores, err := openService(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer closeStores()
		region, _ := cmd.Flags().GetString("region")
		regions := []string{region}
		if region == "" {
			if regions, err = service.Regions(cmd.Context()); err != nil {
				return errors.Trace(err)
			}
		}
		for _, region := range regions {
			if err := service.Precache(cmd.Context(), region); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	},
}

var hotlistCmd = &cobra.Command{
	Use:   "hotlist",
	Short: "Compute and cache the hotlist of every region",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, service, closeStores, err := openService(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer closeStores()
		return errors.Trace(service.WarmupHotlists(cmd.Context()))
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the periodic precache worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, service, closeStores, err := openService(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer closeStores()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := recommend.NewWorker(service).Serve(ctx); !errors.Is(err, context.Canceled) {
			return errors.Trace(err)
		}
		return nil
	},
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(path)
}

// loadRatings reads the training feed from a CSV file when --csv is set,
// otherwise from the configured rating store.
func loadRatings(cmd *cobra.Command, cfg *config.Config, region string) ([]dataset.Rating, error) {
	if cmd.Flags().Changed("csv") {
		path, _ := cmd.Flags().GetString("csv")
		return dataset.LoadCSV(path)
	}
	dataStore, err := data.Open(cfg.Database.DataStore)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer dataStore.Close()
	return dataStore.GetRatings(cmd.Context(), region)
}

func openService(cmd *cobra.Command) (*config.Config, *recommend.Service, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, errors.Trace(err)
	}
	cacheStore, err := cache.Open(cfg.Database.CacheStore)
	if err != nil {
		return nil, nil, nil, errors.Trace(err)
	}
	dataStore, err := data.Open(cfg.Database.DataStore)
	if err != nil {
		_ = cacheStore.Close()
		return nil, nil, nil, errors.Trace(err)
	}
	registry := recommend.NewRegistry(cfg.Recommend.SnapshotDir)
	service := recommend.NewService(cfg, cacheStore, dataStore, registry, recommend.GoroutineScheduler{})
	closeStores := func() {
		_ = cacheStore.Close()
		_ = dataStore.Close()
	}
	return cfg, service, closeStores, nil
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCmd.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCmd.PersistentFlags())
	trainCmd.Flags().String("csv", "", "load ratings from a CSV file instead of the rating store")
	trainCmd.Flags().String("region", "", "train on ratings of this region only")
	trainCmd.Flags().IntP("factors", "k", 0, "number of latent factors")
	trainCmd.Flags().Int("epochs", 0, "number of training epochs")
	trainCmd.Flags().Float64("lr", 0, "fixed learning rate, disables the adaptive schedule")
	trainCmd.Flags().Float64("reg", 0, "regularization strength")
	precacheCmd.Flags().String("region", "", "precache this region only")
	rootCmd.AddCommand(versionCmd, trainCmd, precacheCmd, hotlistCmd, workerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
