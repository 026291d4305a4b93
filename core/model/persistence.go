package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// MarshalModel はモデルを gob 形式のバイト列に変換する
//
// 使用例:
//
//	data, err := model.MarshalModel(scaler)
//	err = store.Save(cfg.Paths.Scaler, data)
func MarshalModel(m interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveModelToWriter(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalModel は gob 形式のバイト列からモデルを復元する
//
// パラメータ:
//   - data: MarshalModel が返したバイト列
//   - m: 読み込み先のモデル（ポインタ）
func UnmarshalModel(data []byte, m interface{}) error {
	return LoadModelFromReader(m, bytes.NewReader(data))
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
