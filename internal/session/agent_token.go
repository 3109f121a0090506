package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"livechat-backend/utils"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt"
)

var (
	agentSecret   []byte
	RedisClient   *redis.Client
	refreshTokens refreshStore
)

const RefreshTokenTTL = 24 * 30 * time.Hour

// Configure wires the signing secret and the refresh-token store. Called
// from main; tests and redis-less deployments pass a nil client and get an
// in-process store.
func Configure(secret string, client *redis.Client) {
	agentSecret = []byte(secret)
	RedisClient = client
	if client != nil {
		refreshTokens = &redisRefreshStore{client: client}
	} else {
		refreshTokens = newMemoryRefreshStore()
	}
}

func CreateToken(agent Agent, validUntil int64) (string, error) {
	if len(agentSecret) == 0 {
		return "", fmt.Errorf("agent secret not configured")
	}

	if validUntil == 0 {
		now := time.Now()
		validUntil = now.Add(time.Minute * 15).Unix()
	}

	claims := jwt.MapClaims{
		"id":    agent.Id,
		"email": agent.Email,
		"name":  agent.Name,
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(agentSecret)
}

func CreateTokenWithRefresh(agent Agent, validUntil int64) (TokenResponse, error) {
	if refreshTokens == nil {
		return TokenResponse{}, fmt.Errorf("refresh store not configured")
	}

	accessToken, err := CreateToken(agent, validUntil)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshToken := utils.CreateToken()

	agentData, _ := json.Marshal(agent)
	err = refreshTokens.save(context.Background(), refreshKey(refreshToken), agentData, RefreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func ParseToken(tokenString string) (jwt.MapClaims, error) {
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return agentSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims of unauthorized type")
	}

	return claims, nil
}

func RefreshToken(refreshToken string) (string, error) {
	if len(refreshToken) == 0 {
		return "", fmt.Errorf("refresh token is empty")
	}
	if refreshTokens == nil {
		return "", fmt.Errorf("refresh store not configured")
	}

	val, err := refreshTokens.load(context.Background(), refreshKey(refreshToken), RefreshTokenTTL)
	if err == errNoRefreshToken {
		return "", fmt.Errorf("invalid refresh token")
	} else if err != nil {
		return "", err
	}

	var agent Agent
	if err := json.Unmarshal(val, &agent); err != nil {
		return "", fmt.Errorf("invalid token data")
	}

	return CreateToken(agent, 0)
}

func refreshKey(token string) string {
	return "refresh:" + token
}
