package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseConfig はFirebase Admin SDKの初期化設定。
// ClientEmailとPrivateKeyが未設定の場合はアプリケーションデフォルト認証情報を使用する。
type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// FirebaseVerifier はFirebase Admin SDKでIDトークンを検証するTokenVerifier。
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

// NewFirebaseVerifier はFirebaseアプリを初期化し、FirebaseVerifierを生成する。
// 呼び出し側（app.runServe）で1度だけ生成して注入する。
func NewFirebaseVerifier(ctx context.Context, cfg FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	opts, err := firebaseOptions(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

// firebaseOptions はサービスアカウント情報が揃っている場合に認証情報オプションを組み立てる。
// 環境変数では改行が \n としてエスケープされているため実際の改行に戻す。
func firebaseOptions(cfg FirebaseConfig) ([]option.ClientOption, error) {
	if cfg.ClientEmail == "" && cfg.PrivateKey == "" {
		return nil, nil
	}
	if cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		return nil, errors.New("FIREBASE_CLIENT_EMAIL and FIREBASE_PRIVATE_KEY must be set together")
	}

	creds, err := serviceAccountJSON(cfg)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
}

func serviceAccountJSON(cfg FirebaseConfig) ([]byte, error) {
	creds, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   cfg.ProjectID,
		"client_email": cfg.ClientEmail,
		"private_key":  strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"),
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account credentials: %w", err)
	}
	return creds, nil
}

// VerifyIDToken はTokenVerifierを実装する。
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*VerifiedToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	email, _ := token.Claims["email"].(string)
	return &VerifiedToken{UID: token.UID, Email: email}, nil
}

// compile-time interface check
var _ TokenVerifier = (*FirebaseVerifier)(nil)
