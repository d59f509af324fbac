// Package gridnet re-exports the public surface of the classifier
// trainer for easier access.
package gridnet

import (
	"github.com/FlavioCFOliveira/GridNet/internal/activations"
	"github.com/FlavioCFOliveira/GridNet/internal/data"
	"github.com/FlavioCFOliveira/GridNet/internal/net"
	"github.com/FlavioCFOliveira/GridNet/internal/search"
	"github.com/FlavioCFOliveira/GridNet/internal/train"
)

// Re-export common types for easier access
type (
	Network     = net.Network
	Params      = net.Params
	Grads       = net.Grads
	Cache       = net.Cache
	Set         = data.Set
	TrainConfig = train.Config
	History     = train.History
	Callback    = train.Callback
	Metrics     = train.Metrics
	Axes        = search.Axes
	Grid        = search.Grid
	GridConfig  = search.Config
	Result      = search.Result
	Report      = search.Report
)

// Activation kinds
const (
	ReLU      = activations.ReLUKind
	PReLU     = activations.PReLUKind
	LeakyReLU = activations.LeakyReLUKind
	Tanh      = activations.TanhKind
)

// NewNetwork creates a three layer classifier with randomized initial
// parameters.
func NewNetwork(inputs, hidden1, hidden2, classes int, kind activations.Kind, seed int64) (*Network, error) {
	return net.New(inputs, hidden1, hidden2, classes, kind, seed)
}

// Train runs the training loop on one network.
func Train(network *Network, trainSet, valSet Set, cfg TrainConfig) (*History, error) {
	return train.Run(network, trainSet, valSet, cfg)
}

// LoadNetwork reads a network saved by Network.Save.
func LoadNetwork(filename string) (*Network, error) {
	return net.Load(filename)
}

// Accuracy is the argmax-match rate of scores against labels.
var Accuracy = net.Accuracy

// ParseKind converts an activation name like "relu" back into a kind.
var ParseKind = activations.ParseKind

// LoadCIFAR10 reads the CIFAR-10 binary batches from a directory.
var LoadCIFAR10 = data.LoadCIFAR10
