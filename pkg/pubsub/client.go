package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/tableside-backend/pkg/config"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub orders topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection for one GCP project. Publishers it hands
// out are reused per topic and flushed on Close.
type Client struct {
	gcp   *pubsub.Client
	names names
	cfg   config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient dials Pub/Sub and refuses to start unless the orders topic (and
// the orders subscription, when one is configured) already exist. Resources
// are provisioned by infrastructure, never by the service.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errNoTopic
	}

	conn, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		gcp:        conn,
		names:      names{project: project},
		cfg:        cfg,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.verify(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project":  project,
			"orders_topic": cfg.OrdersTopic,
		}), "pubsub client initialized")
	}
	return c, nil
}

// Publisher returns the shared publisher for a topic id or full resource
// name, or nil when the name cannot be resolved. Ordering is enabled since
// order events use the order id as ordering key.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.gcp == nil {
		return nil
	}
	name := c.names.topic(topic)
	if name == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[name]; ok {
		return p
	}
	p := c.gcp.Publisher(name)
	p.EnableMessageOrdering = true
	c.publishers[name] = p
	return p
}

// Ping re-runs the startup resource checks.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.gcp == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

// Close flushes every publisher handed out, then closes the connection.
func (c *Client) Close() error {
	if c == nil || c.gcp == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.gcp.Close()
}

func (c *Client) verify(ctx context.Context) error {
	topic := c.cfg.OrdersTopic
	_, err := c.gcp.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.names.topic(topic)})
	if err := describeLookup("topic", topic, err); err != nil {
		return err
	}

	sub := strings.TrimSpace(c.cfg.OrdersSubscription)
	if sub == "" {
		return nil
	}
	_, err = c.gcp.SubscriptionAdminClient.GetSubscription(ctx,
		&pubsubpb.GetSubscriptionRequest{Subscription: c.names.subscription(sub)})
	return describeLookup("subscription", sub, err)
}

func describeLookup(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// names expands short ids to projects/<project>/<kind>/<id>. Full resource
// names pass through untouched so another project's topic can be targeted.
type names struct {
	project string
}

func (n names) topic(id string) string        { return n.expand("topics", id) }
func (n names) subscription(id string) string { return n.expand("subscriptions", id) }

func (n names) expand(kind, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+kind+"/") {
		return id
	}
	if n.project == "" {
		return ""
	}
	return "projects/" + n.project + "/" + kind + "/" + id
}
