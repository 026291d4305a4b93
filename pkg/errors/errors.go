// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// 学習パイプライン、評価、成果物の入出力、外部予測サービスの各段階ごとに
// 構造化されたエラー型を定義し、呼び出し元が errors.As で判別できるようにします。
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ZeroVarianceWarning は分散0の特徴量を恒等変換で扱った場合の警告です。
type ZeroVarianceWarning struct {
	Feature string
}

func (w *ZeroVarianceWarning) Error() string {
	return fmt.Sprintf("feature '%s' has zero variance in the training partition; leaving it unscaled", w.Feature)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ZeroVarianceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("feature", w.Feature).
		Str("type", "ZeroVarianceWarning")
}

// NewZeroVarianceWarning は新しいZeroVarianceWarningを作成します。
func NewZeroVarianceWarning(feature string) *ZeroVarianceWarning {
	return &ZeroVarianceWarning{Feature: feature}
}

// ===========================================================================
//
//	パイプライン固有のエラー型
//
// ===========================================================================

// DataError はデータセットの内容が学習パイプラインの前提を満たさない場合のエラーです。
// 列の欠落、非正の目的変数、分散0の特徴量、非有限値などを表します。
type DataError struct {
	Stage   string   // 発生した段階（例: "validate", "split", "scale"）
	Columns []string // 問題のある列（複数可）
	Row     int      // 問題のある行（-1 は行に依存しない）
	Reason  string
}

func (e *DataError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "houseprice: data error in %s stage", e.Stage)
	if len(e.Columns) == 1 {
		fmt.Fprintf(&b, " for column '%s'", e.Columns[0])
	} else if len(e.Columns) > 1 {
		fmt.Fprintf(&b, " for columns [%s]", strings.Join(e.Columns, ", "))
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).
		Strs("columns", e.Columns).
		Int("row", e.Row).
		Str("reason", e.Reason).
		Str("type", "DataError")
}

// NewDataError は行に依存しないDataErrorを作成し、スタックトレースを付与します。
func NewDataError(stage, reason string, columns ...string) error {
	return errors.WithStack(&DataError{Stage: stage, Columns: columns, Row: -1, Reason: reason})
}

// NewRowDataError は特定の行に起因するDataErrorを作成します。
func NewRowDataError(stage, column string, row int, reason string) error {
	return errors.WithStack(&DataError{Stage: stage, Columns: []string{column}, Row: row, Reason: reason})
}

// ModelIntrospectionError はモデルから特徴量重要度を取り出せない場合のエラーです。
type ModelIntrospectionError struct {
	Model  string
	Reason string
}

func (e *ModelIntrospectionError) Error() string {
	return fmt.Sprintf("houseprice: cannot introspect model %s: %s", e.Model, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ModelIntrospectionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.Model).
		Str("reason", e.Reason).
		Str("type", "ModelIntrospectionError")
}

// NewModelIntrospectionError は新しいModelIntrospectionErrorを作成します。
func NewModelIntrospectionError(model, reason string) error {
	return errors.WithStack(&ModelIntrospectionError{Model: model, Reason: reason})
}

// ArtifactIOError はデータセット・スケーラー・評価結果などの読み書きに失敗した場合のエラーです。
type ArtifactIOError struct {
	Op  string // "load", "save", "decode", "encode"
	Key string // ファイルパスまたはストアのキー
	Err error
}

func (e *ArtifactIOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("houseprice: artifact %s failed for '%s': %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("houseprice: artifact %s failed for '%s'", e.Op, e.Key)
}

func (e *ArtifactIOError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ArtifactIOError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("key", e.Key).
		AnErr("cause", e.Err).
		Str("type", "ArtifactIOError")
}

// NewArtifactIOError は新しいArtifactIOErrorを作成し、スタックトレースを付与します。
func NewArtifactIOError(op, key string, err error) error {
	return errors.WithStack(&ArtifactIOError{Op: op, Key: key, Err: err})
}

// ServiceError は外部の予測サービスに到達できない、または成功以外のステータスを返した場合のエラーです。
type ServiceError struct {
	Endpoint   string
	StatusCode int    // 0 は通信レベルの失敗
	Body       string // エラーレスポンスの本文
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("houseprice: prediction service %s unreachable: %v", e.Endpoint, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("houseprice: prediction service %s returned status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("houseprice: prediction service %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Transport は通信レベルの失敗（接続拒否、タイムアウトなど）かどうかを返します。
func (e *ServiceError) Transport() bool {
	return e.StatusCode == 0
}

// NewServiceError は新しいServiceErrorを作成し、スタックトレースを付与します。
func NewServiceError(endpoint string, status int, body string, err error) error {
	return errors.WithStack(&ServiceError{Endpoint: endpoint, StatusCode: status, Body: body, Err: err})
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("houseprice: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("houseprice: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("houseprice: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("houseprice: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrArtifactNotFound はストアに指定キーの成果物が存在しない場合のエラーです。
	ErrArtifactNotFound = New("artifact not found")
)
