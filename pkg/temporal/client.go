package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epochlabs/ledgerx/pkg/retry"
	"github.com/epochlabs/ledgerx/pkg/utils"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Client manages the ledger namespace: the collection schedule and the worker
// task queue live here.
type Client struct {
	TClient   client.Client
	TSClient  client.ScheduleClient
	Namespace string
	HostPort  string
	logger    *zap.Logger

	LedgerQueue          string // "ledger"
	CollectionScheduleID string // "collection"
}

// NewClient connects to Temporal using environment configuration, retrying the
// initial dial with backoff so the worker survives server restarts.
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", DefaultNamespace)

	loggerWrapper := NewZapAdapter(logger)
	retryConfig := retry.DefaultConfig()

	var tClient client.Client

	logger.Info("Connecting to Temporal",
		zap.String("host", host),
		zap.String("namespace", ns))

	err := retry.WithBackoff(connCtx, retryConfig, logger, "temporal_connection", func() error {
		var err error
		tClient, err = Dial(connCtx, host, ns, loggerWrapper)
		if err != nil {
			return err
		}

		if _, err = tClient.CheckHealth(connCtx, nil); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &Client{
		TClient:              tClient,
		TSClient:             tClient.ScheduleClient(),
		Namespace:            ns,
		HostPort:             host,
		logger:               logger,
		LedgerQueue:          QueueLedger,
		CollectionScheduleID: ScheduleCollection,
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// EnsureNamespace ensures the ledger Temporal namespace exists, creating it if necessary.
func (c *Client) EnsureNamespace(ctx context.Context, retention time.Duration) error {
	nsClient, err := client.NewNamespaceClient(client.Options{
		HostPort: c.HostPort,
		Logger:   NewZapAdapter(c.logger),
	})
	if err != nil {
		return fmt.Errorf("failed to create namespace client: %w", err)
	}
	defer nsClient.Close()

	_, err = nsClient.Describe(ctx, c.Namespace)
	if err == nil {
		return nil
	}

	var notFound *serviceerror.NamespaceNotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe namespace: %w", err)
	}

	err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        c.Namespace,
		WorkflowExecutionRetentionPeriod: durationpb.New(retention),
	})
	if err != nil {
		return fmt.Errorf("failed to register namespace: %w", err)
	}

	// Wait for namespace to be available
	time.Sleep(2 * time.Second)
	return c.EnsureNamespace(ctx, retention)
}

// Close closes the underlying Temporal client connection.
func (c *Client) Close() {
	if c.TClient != nil {
		c.TClient.Close()
	}
}
