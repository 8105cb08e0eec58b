package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"agrinova-api/pkg/models"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// DefaultChatArchiveCollection はチャット履歴を保存するQdrantコレクション名です。
const DefaultChatArchiveCollection = "agrinova_chat_history"

// ErrArchiveDisabled はQdrantが設定されていない場合に返されます。
var ErrArchiveDisabled = errors.New("chat archive is disabled")

// ChatArchive は会話のやり取りをQdrantに保存し、トピックベクトルで検索します。
type ChatArchive struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	conn        *grpc.ClientConn
	collection  string
	bot         *ChatbotService
	logger      *zap.Logger
}

// DialQdrant はQdrantへのgRPC接続を作成します。
// APIキーの有無で、Cloud接続(TLS+APIキー)とローカル接続(非セキュア)を切り替えます。
func DialQdrant(qdrantURL, qdrantAPIKey string) (*grpc.ClientConn, error) {
	var dialOpts []grpc.DialOption
	if qdrantAPIKey != "" {
		creds := credentials.NewTLS(&tls.Config{})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))

		authInterceptor := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", qdrantAPIKey)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(authInterceptor))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("QdrantへのgRPCクライアント作成に失敗: %w", err)
	}
	return conn, nil
}

// NewChatArchive はQdrantに接続し、コレクションを準備したChatArchiveを返します。
func NewChatArchive(ctx context.Context, qdrantURL, qdrantAPIKey, collection string, bot *ChatbotService, logger *zap.Logger) (*ChatArchive, error) {
	conn, err := DialQdrant(qdrantURL, qdrantAPIKey)
	if err != nil {
		return nil, err
	}
	a := NewChatArchiveWithClients(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), collection, bot, logger)
	a.conn = conn

	if err := a.ensureCollection(ctx, 10, 2*time.Second); err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

// NewChatArchiveWithClients は既存のクライアントを使ってChatArchiveを組み立てます。
func NewChatArchiveWithClients(points qdrant.PointsClient, collections qdrant.CollectionsClient, collection string, bot *ChatbotService, logger *zap.Logger) *ChatArchive {
	if collection == "" {
		collection = DefaultChatArchiveCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatArchive{
		points:      points,
		collections: collections,
		collection:  collection,
		bot:         bot,
		logger:      logger,
	}
}

// ensureCollection はQdrantサーバーの起動を待ちながらコレクションの存在を確認し、なければ作成します。
func (a *ChatArchive) ensureCollection(ctx context.Context, maxRetries int, retryInterval time.Duration) error {
	var res *qdrant.ListCollectionsResponse
	var listErr error
	for i := 0; i < maxRetries; i++ {
		listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		res, listErr = a.collections.List(listCtx, &qdrant.ListCollectionsRequest{})
		cancel()
		if listErr == nil {
			break
		}
		a.logger.Warn("Qdrantサーバーの準備確認に失敗しました",
			zap.Int("attempt", i+1), zap.Int("max", maxRetries), zap.Error(listErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	if listErr != nil {
		return fmt.Errorf("Qdrantのコレクションリスト取得に失敗: %w", listErr)
	}

	for _, c := range res.GetCollections() {
		if c.GetName() == a.collection {
			a.logger.Info("chat archive collection exists", zap.String("collection", a.collection))
			return nil
		}
	}

	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := a.collections.Create(createCtx, &qdrant.CreateCollection{
		CollectionName: a.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(len(a.bot.Topics())),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("Qdrantのコレクション作成に失敗: %w", err)
	}
	a.logger.Info("chat archive collection created", zap.String("collection", a.collection))
	return nil
}

// Record は1組のやり取りを質問文のトピックベクトルと共に保存します。
func (a *ChatArchive) Record(ctx context.Context, ex Exchange) error {
	payload := map[string]*qdrant.Value{
		"conversation_id": stringValue(ex.ConversationID),
		"persona":         stringValue(string(ex.Persona)),
		"question":        stringValue(ex.Question.Text),
		"answer":          stringValue(ex.Answer.Text),
		"timestamp":       stringValue(ex.Answer.Timestamp.Format(time.RFC3339)),
		"matched":         {Kind: &qdrant.Value_BoolValue{BoolValue: ex.Matched}},
	}

	pointID := uuid.New().String()
	wait := true
	_, err := a.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: a.collection,
		Points: []*qdrant.PointStruct{
			{
				Id: &qdrant.PointId{
					PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID},
				},
				Vectors: &qdrant.Vectors{
					VectorsOptions: &qdrant.Vectors_Vector{
						Vector: &qdrant.Vector{Data: a.bot.TopicVector(ex.Question.Text)},
					},
				},
				Payload: payload,
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("Qdrantへのチャット履歴保存に失敗: %w", err)
	}
	a.logger.Debug("chat exchange archived", zap.String("point_id", pointID), zap.String("conversation_id", ex.ConversationID))
	return nil
}

// Search はクエリに近い過去のやり取りを返します。personaが空なら全ペルソナが対象です。
func (a *ChatArchive) Search(ctx context.Context, query string, persona Persona, topK uint64) ([]models.ChatArchiveHit, error) {
	if topK == 0 {
		topK = 5
	}
	req := &qdrant.SearchPoints{
		CollectionName: a.collection,
		Vector:         a.bot.TopicVector(query),
		Limit:          topK,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	}
	if persona != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key: "persona",
							Match: &qdrant.Match{
								MatchValue: &qdrant.Match_Keyword{Keyword: string(persona)},
							},
						},
					},
				},
			},
		}
	}

	res, err := a.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Qdrantでのチャット履歴検索に失敗: %w", err)
	}

	hits := make([]models.ChatArchiveHit, 0, len(res.GetResult()))
	for _, p := range res.GetResult() {
		payload := p.GetPayload()
		hits = append(hits, models.ChatArchiveHit{
			ConversationID: getStringFromPayload(payload, "conversation_id"),
			Question:       getStringFromPayload(payload, "question"),
			Answer:         getStringFromPayload(payload, "answer"),
			Persona:        getStringFromPayload(payload, "persona"),
			Timestamp:      getStringFromPayload(payload, "timestamp"),
			Score:          p.GetScore(),
		})
	}
	return hits, nil
}

// Hook はConversationStoreに渡すフックを返します。保存の失敗はログに残すだけです。
func (a *ChatArchive) Hook(timeout time.Duration) ExchangeHook {
	return func(ex Exchange) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.Record(ctx, ex); err != nil {
			a.logger.Warn("chat archive write failed", zap.String("conversation_id", ex.ConversationID), zap.Error(err))
		}
	}
}

// Close はgRPC接続を閉じます。
func (a *ChatArchive) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

func stringValue(v string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
}

// getStringFromPayload ペイロードから文字列値を取得するヘルパー関数
func getStringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok {
		return val.GetStringValue()
	}
	return ""
}
