package fst

import "github.com/hupe1980/termdict/internal/encoding"

// NoOutputs turns the FST into an acceptor: keys carry no value.
type NoOutputs struct{}

var _ Outputs[struct{}] = NoOutputs{}

func (NoOutputs) NoOutput() struct{}                      { return struct{}{} }
func (NoOutputs) IsNoOutput(struct{}) bool                { return true }
func (NoOutputs) Common(_, _ struct{}) struct{}           { return struct{}{} }
func (NoOutputs) Subtract(_, _ struct{}) struct{}         { return struct{}{} }
func (NoOutputs) Add(_, _ struct{}) struct{}              { return struct{}{} }
func (NoOutputs) Merge(_, _ struct{}) (struct{}, error)   { return struct{}{}, nil }
func (NoOutputs) Equal(_, _ struct{}) bool                { return true }
func (NoOutputs) Append(dst []byte, _ struct{}) []byte    { return dst }
func (NoOutputs) Read(*encoding.Reader) (struct{}, error) { return struct{}{}, nil }
func (NoOutputs) Skip(*encoding.Reader) error             { return nil }
func (NoOutputs) String(struct{}) string                  { return "" }
