package pubsubconn

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/rumsystem/mstnode/internal/pkg/errors"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/internal/pkg/metric"
	"github.com/rumsystem/mstnode/pkg/codec"
	"github.com/rumsystem/mstnode/pkg/mst"
)

var channel_log = logging.Logger("chan")

// envelope is what goes over the topic. Every node subscribes to the same
// topic, To picks the receiver. From must be the signed publisher of the
// pubsub message.
type envelope struct {
	Id      string
	From    string
	To      string
	Payload []byte
}

type StateHandler func(from string, state *mst.MstState)

// P2pPubSubConn sends mst states to single peers over a shared pubsub
// topic
type P2pPubSubConn struct {
	self      string
	converter *codec.BatchConverter
	completer mst.Completer
	stateLog  logging.StandardLogger

	mu           sync.RWMutex
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
	cancel       context.CancelFunc
}

func newConn(self string, converter *codec.BatchConverter, completer mst.Completer) *P2pPubSubConn {
	return &P2pPubSubConn{
		self:      self,
		converter: converter,
		completer: completer,
		stateLog:  logging.Logger("mst"),
	}
}

// JoinChannel joins and subscribes topicName
func JoinChannel(ps *pubsub.PubSub, self peer.ID, topicName string, converter *codec.BatchConverter, completer mst.Completer) (*P2pPubSubConn, error) {
	psconn := newConn(self.String(), converter, completer)

	topic, err := ps.Join(topicName)
	if err != nil {
		channel_log.Infof("Join <%s> failed", topicName)
		metric.PubSubFailedCount.WithLabelValues(metric.PubSubActionType.JoinTopic).Inc()
		return nil, err
	}
	channel_log.Infof("Join <%s> done", topicName)
	metric.PubSubSuccessCount.WithLabelValues(metric.PubSubActionType.JoinTopic).Inc()

	sub, err := topic.Subscribe()
	if err != nil {
		channel_log.Errorf("Subscribe <%s> failed: %s", topicName, err)
		metric.PubSubFailedCount.WithLabelValues(metric.PubSubActionType.SubscribeTopic).Inc()
		topic.Close()
		return nil, err
	}
	channel_log.Infof("Subscribe <%s> done", topicName)
	metric.PubSubSuccessCount.WithLabelValues(metric.PubSubActionType.SubscribeTopic).Inc()

	psconn.topic = topic
	psconn.subscription = sub
	return psconn, nil
}

// Peers returns the peers currently subscribed to the topic
func (psconn *P2pPubSubConn) Peers() []string {
	psconn.mu.RLock()
	defer psconn.mu.RUnlock()
	if psconn.topic == nil {
		return nil
	}
	var peers []string
	for _, p := range psconn.topic.ListPeers() {
		peers = append(peers, p.String())
	}
	return peers
}

func (psconn *P2pPubSubConn) SendState(ctx context.Context, to string, state *mst.MstState) error {
	payload, err := psconn.converter.SerializeState(state)
	if err != nil {
		return err
	}
	data, err := psconn.encode(to, payload)
	if err != nil {
		return err
	}

	psconn.mu.RLock()
	defer psconn.mu.RUnlock()
	if psconn.topic == nil {
		return errors.ErrTransportClosed
	}
	if !psconn.subscribedLocked(to) {
		metric.PubSubFailedCount.WithLabelValues(metric.PubSubActionType.PublishToTopic).Inc()
		return fmt.Errorf("%w: %s", errors.ErrUnknownPeer, to)
	}

	if err := psconn.topic.Publish(ctx, data); err != nil {
		metric.PubSubFailedCount.WithLabelValues(metric.PubSubActionType.PublishToTopic).Inc()
		return err
	}
	metric.PubSubSuccessCount.WithLabelValues(metric.PubSubActionType.PublishToTopic).Inc()
	metric.PubSubOutBytesTotal.WithLabelValues(metric.PubSubActionType.PublishToTopic).Add(float64(len(data)))
	channel_log.Debugf("send %d batches to %s", state.Len(), to)
	return nil
}

func (psconn *P2pPubSubConn) subscribedLocked(name string) bool {
	for _, p := range psconn.topic.ListPeers() {
		if p.String() == name {
			return true
		}
	}
	return false
}

func (psconn *P2pPubSubConn) encode(to string, payload []byte) ([]byte, error) {
	env := envelope{
		Id:      uuid.New().String(),
		From:    psconn.self,
		To:      to,
		Payload: payload,
	}
	return rlp.EncodeToBytes(&env)
}

// Start reads the subscription until ctx is done or Close is called
func (psconn *P2pPubSubConn) Start(ctx context.Context, handler StateHandler) {
	psconn.mu.Lock()
	ctx, psconn.cancel = context.WithCancel(ctx)
	sub := psconn.subscription
	psconn.mu.Unlock()
	if sub == nil {
		return
	}

	go func() {
		for {
			msg, err := sub.Next(ctx)
			if err != nil {
				channel_log.Infof("subscription stopped: %s", err)
				return
			}
			metric.PubSubSuccessCount.WithLabelValues(metric.PubSubActionType.ReceiveFromTopic).Inc()
			metric.PubSubInBytesTotal.WithLabelValues(metric.PubSubActionType.ReceiveFromTopic).Add(float64(len(msg.Data)))
			if err := psconn.handleMessage(msg.GetFrom().String(), msg.Data, handler); err != nil {
				channel_log.Warnf("drop message from %s: %s", msg.ReceivedFrom, err)
			}
		}
	}()
}

// handleMessage decodes data published by origin and calls handler when
// the envelope is addressed to this node
func (psconn *P2pPubSubConn) handleMessage(origin string, data []byte, handler StateHandler) error {
	if origin == psconn.self {
		return nil
	}
	var env envelope
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.To != psconn.self {
		return nil
	}
	if env.From != origin {
		return fmt.Errorf("%w: envelope %s from %s published by %s", errors.ErrSenderMismatch, env.Id, env.From, origin)
	}
	state, err := psconn.converter.DeserializeState(env.Payload, psconn.stateLog, psconn.completer)
	if err != nil {
		return fmt.Errorf("envelope %s: %w", env.Id, err)
	}
	handler(env.From, state)
	return nil
}

func (psconn *P2pPubSubConn) Close() {
	psconn.mu.Lock()
	defer psconn.mu.Unlock()
	if psconn.cancel != nil {
		psconn.cancel()
	}
	if psconn.subscription != nil {
		psconn.subscription.Cancel()
		psconn.subscription = nil
	}
	if psconn.topic != nil {
		psconn.topic.Close()
		psconn.topic = nil
	}
	channel_log.Infof("Leave channel done")
}
