package controller
