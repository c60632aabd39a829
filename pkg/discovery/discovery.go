package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/example/bistro/pkg/config"
)

type ServiceDiscovery struct {
	client *clientv3.Client
	config *config.EtcdConfig
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

type ServiceInstance struct {
	Name string
	Host string
	Port int
}

func (i *ServiceInstance) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

func NewServiceDiscovery(cfg *config.EtcdConfig, logger *zap.Logger) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &ServiceDiscovery{
		client: cli,
		config: cfg,
		logger: logger.Named("discovery"),
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

func servicePrefix(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name + "/"
}

func instanceKey(prefix string, instance *ServiceInstance) string {
	return servicePrefix(prefix, instance.Name) + instance.Addr()
}

// parseInstance reads a stored "host:port" value.
func parseInstance(name, value string) (*ServiceInstance, error) {
	host, portStr, err := net.SplitHostPort(value)
	if err != nil {
		return nil, fmt.Errorf("bad address %q: %w", value, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("bad port in %q: %w", value, err)
	}
	return &ServiceInstance{Name: name, Host: host, Port: port}, nil
}

// Register publishes instance under a lease kept alive until ctx ends or
// Deregister is called.
func (sd *ServiceDiscovery) Register(ctx context.Context, instance *ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)

	ttl := sd.config.LeaseTTL
	if ttl <= 0 {
		ttl = 10
	}
	lease, err := sd.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	_, err = sd.client.Put(ctx, key, instance.Addr(), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, kaerr := sd.client.KeepAlive(ctx, lease.ID)
	if kaerr != nil {
		return fmt.Errorf("failed to keep alive: %w", kaerr)
	}

	sd.mu.Lock()
	sd.leases[key] = lease.ID
	sd.mu.Unlock()

	go func() {
		for range ch {
		}
		sd.logger.Info("Lease keep-alive ended", zap.String("key", key))
	}()

	return nil
}

func (sd *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	resp, err := sd.client.Get(ctx, servicePrefix(sd.config.Prefix, serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover service: %w", err)
	}

	var instances []*ServiceInstance
	for _, kv := range resp.Kvs {
		inst, err := parseInstance(serviceName, string(kv.Value))
		if err != nil {
			sd.logger.Warn("Skipping malformed instance", zap.String("key", string(kv.Key)), zap.Error(err))
			continue
		}
		instances = append(instances, inst)
	}

	return instances, nil
}

func (sd *ServiceDiscovery) Deregister(ctx context.Context, instance *ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)
	if _, err := sd.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}

	sd.mu.Lock()
	id, ok := sd.leases[key]
	delete(sd.leases, key)
	sd.mu.Unlock()
	if ok {
		if _, err := sd.client.Revoke(ctx, id); err != nil {
			return fmt.Errorf("failed to revoke lease: %w", err)
		}
	}
	return nil
}

func (sd *ServiceDiscovery) Close() error {
	return sd.client.Close()
}
