package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/tarstars/regression_tree/golang/regression_tree/rtl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "RTREE"

//decodeConfig reads a JSON or YAML config file into out. Every key of out can be overridden
//by an environment variable, e.g. RTREE_MIN_LEAF_SIZE or RTREE_FILENAME_MODEL.
func decodeConfig(srcConfig string, defaults map[string]interface{}, out interface{}) error {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvKeys(v, out); err != nil {
		return err
	}

	if srcConfig != "" {
		v.SetConfigFile(srcConfig)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "can't read config %s", srcConfig)
		}
	}
	return errors.Wrap(v.Unmarshal(out), "can't decode config")
}

//bindEnvKeys registers the mapstructure keys of out with viper, so that Unmarshal sees
//environment values for keys that have neither a default nor a config file entry.
func bindEnvKeys(v *viper.Viper, out interface{}) error {
	var keys map[string]interface{}
	if err := mapstructure.Decode(out, &keys); err != nil {
		return errors.Wrap(err, "can't list config keys")
	}
	return bindKeys(v, keys)
}

func bindKeys(v *viper.Viper, keys map[string]interface{}) error {
	for key, value := range keys {
		if nested, ok := value.(map[string]interface{}); ok {
			if err := bindKeys(v, nested); err != nil {
				return err
			}
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return errors.Wrapf(err, "can't bind %s", key)
		}
	}
	return nil
}

func paramDefaults() map[string]interface{} {
	params := rtl.DefaultParams()
	return map[string]interface{}{
		"min_impurity_decrease": params.MinImpurityDecrease,
		"min_size_to_split":     params.MinSizeToSplit,
		"min_leaf_size":         params.MinLeafSize,
		"max_depth":             params.MaxDepth,
	}
}

type TrainConfig struct {
	FileNameTrainFeatures string     `mapstructure:"filename_train_features"`
	FileNameTrainTarget   string     `mapstructure:"filename_train_target"`
	FileNameModel         string     `mapstructure:"filename_model"`
	FileNameDot           string     `mapstructure:"filename_dot"`
	Params                rtl.Params `mapstructure:",squash"`
}

func train(srcConfig string, logger *zap.Logger) error {
	var trainConfig TrainConfig
	if err := decodeConfig(srcConfig, paramDefaults(), &trainConfig); err != nil {
		return err
	}

	logger.Info("load train", zap.String("features", trainConfig.FileNameTrainFeatures))
	features, err := rtl.ReadNpy(trainConfig.FileNameTrainFeatures)
	if err != nil {
		return err
	}
	target, err := rtl.ReadNpy(trainConfig.FileNameTrainTarget)
	if err != nil {
		return err
	}

	clf := rtl.NewDecisionTreeRegressor(rtl.WithParams(trainConfig.Params), rtl.WithLogger(logger))
	if err := clf.Fit(features, rtl.AsColumn(target)); err != nil {
		return err
	}

	if trainConfig.FileNameDot != "" {
		if err := writeDot(clf, trainConfig.FileNameDot); err != nil {
			return err
		}
	}
	return clf.SaveFile(trainConfig.FileNameModel)
}

func writeDot(clf *rtl.DecisionTreeRegressor, filename string) error {
	description, err := clf.Export()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, []byte(description), 0o644), "can't write %s", filename)
}

type PredictConfig struct {
	DataFeaturesFileName string `mapstructure:"filename_features"`
	ModelFileName        string `mapstructure:"filename_model"`
	PredictionFileName   string `mapstructure:"filename_target"`
}

func predict(srcConfig string, logger *zap.Logger) error {
	var predictConfig PredictConfig
	if err := decodeConfig(srcConfig, nil, &predictConfig); err != nil {
		return err
	}

	features, err := rtl.ReadNpy(predictConfig.DataFeaturesFileName)
	if err != nil {
		return err
	}
	clf, err := rtl.LoadModelFile(predictConfig.ModelFileName, rtl.WithLogger(logger))
	if err != nil {
		return err
	}

	prediction, err := clf.PredictValue(features)
	if err != nil {
		return err
	}
	logger.Info("write prediction", zap.String("filename", predictConfig.PredictionFileName))
	return rtl.WriteNpy(predictConfig.PredictionFileName, prediction)
}

type ScoreConfig struct {
	DataFeaturesFileName string `mapstructure:"filename_features"`
	DataTargetFileName   string `mapstructure:"filename_target"`
	ModelFileName        string `mapstructure:"filename_model"`
}

func score(srcConfig string, logger *zap.Logger) error {
	var scoreConfig ScoreConfig
	if err := decodeConfig(srcConfig, nil, &scoreConfig); err != nil {
		return err
	}

	features, err := rtl.ReadNpy(scoreConfig.DataFeaturesFileName)
	if err != nil {
		return err
	}
	target, err := rtl.ReadNpy(scoreConfig.DataTargetFileName)
	if err != nil {
		return err
	}
	target = rtl.AsColumn(target)

	clf, err := rtl.LoadModelFile(scoreConfig.ModelFileName)
	if err != nil {
		return err
	}
	prediction, err := clf.PredictValue(features)
	if err != nil {
		return err
	}
	r2, err := clf.Score(features, target)
	if err != nil {
		return err
	}
	logger.Info("score", zap.Float64("rmse", rtl.Rmse(target, prediction)), zap.Float64("r2", r2))
	return nil
}

type GraphConfig struct {
	ModelFileName string `mapstructure:"filename_model"`
	FigureType    string `mapstructure:"figure_type"`
	PictureName   string `mapstructure:"filename_picture"`
}

func graph(srcConfig string, logger *zap.Logger) error {
	var graphConfig GraphConfig
	if err := decodeConfig(srcConfig, map[string]interface{}{"figure_type": "svg"}, &graphConfig); err != nil {
		return err
	}

	clf, err := rtl.LoadModelFile(graphConfig.ModelFileName)
	if err != nil {
		return err
	}
	logger.Info("render tree", zap.String("filename", graphConfig.PictureName), zap.String("type", graphConfig.FigureType))
	return clf.RenderFile(graphConfig.FigureType, graphConfig.PictureName)
}

//dot reads rows of features followed by the target from stdin and prints the grown tree.
func dot(srcConfig string, logger *zap.Logger) error {
	var params rtl.Params
	if err := decodeConfig(srcConfig, paramDefaults(), &params); err != nil {
		return err
	}
	return dotFromStream(os.Stdin, os.Stdout, params, logger)
}

func dotFromStream(source io.Reader, destination io.Writer, params rtl.Params, logger *zap.Logger) error {
	features, target, err := rtl.ReadTextRows(source)
	if err != nil {
		return err
	}
	clf := rtl.NewDecisionTreeRegressor(rtl.WithParams(params), rtl.WithLogger(logger))
	if err := clf.Fit(features, target); err != nil {
		return err
	}
	description, err := clf.Export()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(destination, description)
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}

var modes = map[string]func(string, *zap.Logger) error{
	"train":   train,
	"predict": predict,
	"score":   score,
	"graph":   graph,
	"dot":     dot,
}

func main() {
	runMode := flag.String("mode", "train", "you can select either 'train', 'predict', 'score', 'graph' or 'dot' modes")
	config := flag.String("config", "", "a config file (json or yaml) for the run of the program")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad log level:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	run, ok := modes[*runMode]
	if !ok {
		logger.Error("unknown mode", zap.String("mode", *runMode))
		os.Exit(2)
	}
	if err := run(*config, logger); err != nil {
		logger.Error("run failed", zap.String("mode", *runMode), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	if *memprofile != "" {
		if err := writeHeapProfile(*memprofile); err != nil {
			logger.Error("could not write memory profile", zap.Error(err))
		}
	}
}

func writeHeapProfile(filename string) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
