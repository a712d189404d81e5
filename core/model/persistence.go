package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// SaveModel はモデルをファイルに保存する
//
// The blob is gob-encoded inside a snappy stream. It is written to a
// temporary file next to filename and renamed over it, so readers see either
// the previous artifact or the new one. The parent directory is created when
// missing.
//
// 使用例:
//
//	forest := ensemble.NewRandomForestRegressor()
//	// ... モデルの学習 ...
//	err := model.SaveModel(forest, "models/house_price_model.pkl")
func SaveModel(model interface{}, filename string) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	sw := snappy.NewBufferedWriter(tmp)
	if err := SaveModelToWriter(model, sw); err != nil {
		return err
	}
	if err := sw.Close(); err != nil {
		return errors.Wrap(err, "failed to flush compressed stream")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrapf(err, "failed to replace %s", filename)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
// 使用例:
//
//	var forest ensemble.RandomForestRegressor
//	err := model.LoadModel(&forest, "models/house_price_model.pkl")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadModelFromReader(model, snappy.NewReader(file))
}

// SaveModelToWriter はモデルをio.Writerにgob形式で保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからgob形式のモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
