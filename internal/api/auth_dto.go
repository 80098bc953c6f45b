package api

import (
	userHttp "github.com/itemshare/item-share-backend/internal/user/http"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type RegisterResponse struct {
	User userHttp.UserResponse `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string                `json:"access_token"`
	User        userHttp.UserResponse `json:"user"`
}
